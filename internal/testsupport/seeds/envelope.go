package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trusio/internal/domain/budget"
)

// EnvelopeBuilder provides a fluent API for creating Envelope entities
type EnvelopeBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *budget.Envelope
}

// NewEnvelopeBuilder creates a new EnvelopeBuilder with sensible defaults
func NewEnvelopeBuilder(db DBTX, ctx context.Context) *EnvelopeBuilder {
	now := time.Now()
	return &EnvelopeBuilder{
		db:  db,
		ctx: ctx,
		entity: &budget.Envelope{
			ID:        uuid.New(),
			Name:      "Groceries",
			Category:  "groceries",
			Budgeted:  decimal.NewFromInt(500),
			Balance:   decimal.NewFromInt(500),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// WithID sets a specific ID
func (b *EnvelopeBuilder) WithID(id uuid.UUID) *EnvelopeBuilder {
	b.entity.ID = id
	return b
}

// WithUserID sets the owning user
func (b *EnvelopeBuilder) WithUserID(userID string) *EnvelopeBuilder {
	b.entity.UserID = userID
	return b
}

// WithName sets the envelope name
func (b *EnvelopeBuilder) WithName(name string) *EnvelopeBuilder {
	b.entity.Name = name
	return b
}

// WithCategory sets the spending category the envelope tracks
func (b *EnvelopeBuilder) WithCategory(category string) *EnvelopeBuilder {
	b.entity.Category = category
	return b
}

// WithBudgeted sets the allocated amount and resets the balance to match
func (b *EnvelopeBuilder) WithBudgeted(amount float64) *EnvelopeBuilder {
	b.entity.Budgeted = decimal.NewFromFloat(amount)
	b.entity.Balance = b.entity.Budgeted
	return b
}

// WithBalance sets the remaining balance
func (b *EnvelopeBuilder) WithBalance(amount float64) *EnvelopeBuilder {
	b.entity.Balance = decimal.NewFromFloat(amount)
	return b
}

// Build returns the built entity without inserting to DB
func (b *EnvelopeBuilder) Build() *budget.Envelope {
	return b.entity
}

// Insert inserts the envelope into the database and returns the entity
func (b *EnvelopeBuilder) Insert() (*budget.Envelope, error) {
	query := `
		INSERT INTO envelopes (
			id, user_id, name, category, budgeted, balance, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.ID, b.entity.UserID, b.entity.Name, b.entity.Category,
		b.entity.Budgeted, b.entity.Balance, b.entity.CreatedAt, b.entity.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert envelope: %w", err)
	}

	return b.entity, nil
}
