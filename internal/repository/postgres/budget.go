package postgres

import (
	"context"
	"time"

	"trusio/internal/domain/budget"
	"trusio/pkg/errors"
)

// snapshotTransactionWindow bounds how far back the snapshot reads activity.
const snapshotTransactionWindow = 90 * 24 * time.Hour

// BudgetRepository implements budget.Repository over the read models owned
// by the budgeting service.
type BudgetRepository struct {
	db DBTX
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db DBTX) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// GetSnapshot assembles the financial state for one user
func (r *BudgetRepository) GetSnapshot(ctx context.Context, userID string) (*budget.Snapshot, error) {
	snapshot := &budget.Snapshot{
		UserID:    userID,
		FetchedAt: time.Now(),
	}

	envelopeQuery := `
		SELECT id, user_id, name, category, budgeted, balance, created_at, updated_at
		FROM envelopes
		WHERE user_id = $1
		ORDER BY name ASC
	`
	if err := r.db.SelectContext(ctx, &snapshot.Envelopes, envelopeQuery, userID); err != nil {
		return nil, errors.Wrap(err, "select envelopes")
	}

	txQuery := `
		SELECT id, user_id, envelope_id, amount, category, description, posted_at
		FROM transactions
		WHERE user_id = $1 AND posted_at >= $2
		ORDER BY posted_at DESC
	`
	since := time.Now().Add(-snapshotTransactionWindow)
	if err := r.db.SelectContext(ctx, &snapshot.Transactions, txQuery, userID, since); err != nil {
		return nil, errors.Wrap(err, "select transactions")
	}

	goalQuery := `
		SELECT id, user_id, name, target, saved, target_date
		FROM goals
		WHERE user_id = $1
		ORDER BY name ASC
	`
	if err := r.db.SelectContext(ctx, &snapshot.Goals, goalQuery, userID); err != nil {
		return nil, errors.Wrap(err, "select goals")
	}

	return snapshot, nil
}
