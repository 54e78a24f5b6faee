package postgres

import (
	"context"

	"trusio/internal/domain/memory"
	"trusio/pkg/errors"
)

// MemoryRepository implements memory.Repository
type MemoryRepository struct {
	db DBTX
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db DBTX) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// UpsertPreference writes a preference, replacing any previous value for the key
func (r *MemoryRepository) UpsertPreference(ctx context.Context, pref *memory.Preference) error {
	query := `
		INSERT INTO user_preferences (user_id, key, value, category, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			category = EXCLUDED.category,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query,
		pref.UserID, pref.Key, pref.Value, pref.Category, pref.Confidence, pref.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "upsert preference")
	}
	return nil
}

// GetPreferences returns all preferences for a user
func (r *MemoryRepository) GetPreferences(ctx context.Context, userID string) ([]memory.Preference, error) {
	query := `
		SELECT user_id, key, value, category, confidence, updated_at
		FROM user_preferences
		WHERE user_id = $1
		ORDER BY key ASC
	`

	prefs := []memory.Preference{}
	if err := r.db.SelectContext(ctx, &prefs, query, userID); err != nil {
		return nil, errors.Wrap(err, "select preferences")
	}
	return prefs, nil
}

// InsertInsight appends an insight row
func (r *MemoryRepository) InsertInsight(ctx context.Context, insight *memory.Insight) error {
	query := `
		INSERT INTO user_insights (id, user_id, agent_name, content, category, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.db.ExecContext(ctx, query,
		insight.ID, insight.UserID, insight.AgentName, insight.Content,
		insight.Category, insight.Confidence, insight.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "insert insight")
	}
	return nil
}

// GetRecentInsights returns insights ordered newest first
func (r *MemoryRepository) GetRecentInsights(ctx context.Context, userID string, limit int) ([]memory.Insight, error) {
	query := `
		SELECT id, user_id, agent_name, content, category, confidence, created_at
		FROM user_insights
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	insights := []memory.Insight{}
	if err := r.db.SelectContext(ctx, &insights, query, userID, limit); err != nil {
		return nil, errors.Wrap(err, "select insights")
	}
	return insights, nil
}

// PruneInsights deletes the oldest insights beyond keep
func (r *MemoryRepository) PruneInsights(ctx context.Context, userID string, keep int) (int64, error) {
	query := `
		DELETE FROM user_insights
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM user_insights
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`

	result, err := r.db.ExecContext(ctx, query, userID, keep)
	if err != nil {
		return 0, errors.Wrap(err, "prune insights")
	}
	return result.RowsAffected()
}
