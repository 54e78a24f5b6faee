package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trusio/internal/domain/budget"
)

// TransactionBuilder provides a fluent API for creating Transaction entities
type TransactionBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *budget.Transaction
}

// NewTransactionBuilder creates a new TransactionBuilder with sensible defaults
func NewTransactionBuilder(db DBTX, ctx context.Context) *TransactionBuilder {
	return &TransactionBuilder{
		db:  db,
		ctx: ctx,
		entity: &budget.Transaction{
			ID:          uuid.New(),
			Amount:      decimal.NewFromFloat(-25.00),
			Category:    "groceries",
			Description: "Seed transaction",
			PostedAt:    time.Now(),
		},
	}
}

// WithID sets a specific ID
func (b *TransactionBuilder) WithID(id uuid.UUID) *TransactionBuilder {
	b.entity.ID = id
	return b
}

// WithUserID sets the owning user
func (b *TransactionBuilder) WithUserID(userID string) *TransactionBuilder {
	b.entity.UserID = userID
	return b
}

// WithEnvelope links the transaction to an envelope
func (b *TransactionBuilder) WithEnvelope(envelopeID uuid.UUID) *TransactionBuilder {
	b.entity.EnvelopeID = &envelopeID
	return b
}

// WithAmount sets the signed amount (negative for spending)
func (b *TransactionBuilder) WithAmount(amount float64) *TransactionBuilder {
	b.entity.Amount = decimal.NewFromFloat(amount)
	return b
}

// WithCategory sets the spending category
func (b *TransactionBuilder) WithCategory(category string) *TransactionBuilder {
	b.entity.Category = category
	return b
}

// WithDescription sets the description
func (b *TransactionBuilder) WithDescription(description string) *TransactionBuilder {
	b.entity.Description = description
	return b
}

// WithPostedAt sets the ledger date
func (b *TransactionBuilder) WithPostedAt(postedAt time.Time) *TransactionBuilder {
	b.entity.PostedAt = postedAt
	return b
}

// DaysAgo posts the transaction a number of days in the past
func (b *TransactionBuilder) DaysAgo(days int) *TransactionBuilder {
	b.entity.PostedAt = time.Now().AddDate(0, 0, -days)
	return b
}

// Build returns the built entity without inserting to DB
func (b *TransactionBuilder) Build() *budget.Transaction {
	return b.entity
}

// Insert inserts the transaction into the database and returns the entity
func (b *TransactionBuilder) Insert() (*budget.Transaction, error) {
	query := `
		INSERT INTO transactions (
			id, user_id, envelope_id, amount, category, description, posted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.ID, b.entity.UserID, b.entity.EnvelopeID, b.entity.Amount,
		b.entity.Category, b.entity.Description, b.entity.PostedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	return b.entity, nil
}
