package seeds

import (
	"context"
	"fmt"
	"time"

	"trusio/internal/domain/memory"
)

// PreferenceBuilder provides a fluent API for creating user preference rows
type PreferenceBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *memory.Preference
}

// NewPreferenceBuilder creates a new PreferenceBuilder with sensible defaults
func NewPreferenceBuilder(db DBTX, ctx context.Context) *PreferenceBuilder {
	return &PreferenceBuilder{
		db:  db,
		ctx: ctx,
		entity: &memory.Preference{
			Key:        "communication_style",
			Value:      "concise",
			Category:   "communication",
			Confidence: 1.0,
			UpdatedAt:  time.Now(),
		},
	}
}

// WithUserID sets the owning user
func (b *PreferenceBuilder) WithUserID(userID string) *PreferenceBuilder {
	b.entity.UserID = userID
	return b
}

// WithKey sets the preference key
func (b *PreferenceBuilder) WithKey(key string) *PreferenceBuilder {
	b.entity.Key = key
	return b
}

// WithValue sets the preference value
func (b *PreferenceBuilder) WithValue(value string) *PreferenceBuilder {
	b.entity.Value = value
	return b
}

// WithCategory sets the preference category
func (b *PreferenceBuilder) WithCategory(category string) *PreferenceBuilder {
	b.entity.Category = category
	return b
}

// WithConfidence sets the confidence score
func (b *PreferenceBuilder) WithConfidence(confidence float64) *PreferenceBuilder {
	b.entity.Confidence = confidence
	return b
}

// Build returns the built entity without inserting to DB
func (b *PreferenceBuilder) Build() *memory.Preference {
	return b.entity
}

// Insert upserts the preference into the database and returns the entity
func (b *PreferenceBuilder) Insert() (*memory.Preference, error) {
	query := `
		INSERT INTO user_preferences (user_id, key, value, category, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			category = EXCLUDED.category,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
	`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.UserID, b.entity.Key, b.entity.Value,
		b.entity.Category, b.entity.Confidence, b.entity.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}

	return b.entity, nil
}
