package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trusio/internal/domain/budget"
)

// GoalBuilder provides a fluent API for creating savings Goal entities
type GoalBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *budget.Goal
}

// NewGoalBuilder creates a new GoalBuilder with sensible defaults
func NewGoalBuilder(db DBTX, ctx context.Context) *GoalBuilder {
	return &GoalBuilder{
		db:  db,
		ctx: ctx,
		entity: &budget.Goal{
			ID:     uuid.New(),
			Name:   "Emergency Fund",
			Target: decimal.NewFromInt(1000),
			Saved:  decimal.Zero,
		},
	}
}

// WithID sets a specific ID
func (b *GoalBuilder) WithID(id uuid.UUID) *GoalBuilder {
	b.entity.ID = id
	return b
}

// WithUserID sets the owning user
func (b *GoalBuilder) WithUserID(userID string) *GoalBuilder {
	b.entity.UserID = userID
	return b
}

// WithName sets the goal name
func (b *GoalBuilder) WithName(name string) *GoalBuilder {
	b.entity.Name = name
	return b
}

// WithTarget sets the savings target
func (b *GoalBuilder) WithTarget(amount float64) *GoalBuilder {
	b.entity.Target = decimal.NewFromFloat(amount)
	return b
}

// WithSaved sets the amount saved so far
func (b *GoalBuilder) WithSaved(amount float64) *GoalBuilder {
	b.entity.Saved = decimal.NewFromFloat(amount)
	return b
}

// WithTargetDate sets the deadline
func (b *GoalBuilder) WithTargetDate(date time.Time) *GoalBuilder {
	b.entity.TargetDate = &date
	return b
}

// Build returns the built entity without inserting to DB
func (b *GoalBuilder) Build() *budget.Goal {
	return b.entity
}

// Insert inserts the goal into the database and returns the entity
func (b *GoalBuilder) Insert() (*budget.Goal, error) {
	query := `
		INSERT INTO goals (
			id, user_id, name, target, saved, target_date
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.ID, b.entity.UserID, b.entity.Name,
		b.entity.Target, b.entity.Saved, b.entity.TargetDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}

	return b.entity, nil
}
