package seeds

import (
	"context"
	"database/sql"

	"trusio/pkg/logger"
)

// DBTX is the interface that both *sql.DB and *sql.Tx satisfy
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Seeder is the central orchestrator for creating seed data.
// It provides a fluent API to build development and test scenarios.
type Seeder struct {
	db  DBTX
	ctx context.Context
	log *logger.Logger
}

// New creates a new Seeder instance
func New(db DBTX) *Seeder {
	return &Seeder{
		db:  db,
		ctx: context.Background(),
		log: logger.Get().With("component", "seeds"),
	}
}

// WithContext sets the context for database operations
func (s *Seeder) WithContext(ctx context.Context) *Seeder {
	s.ctx = ctx
	return s
}

// Log returns the logger instance
func (s *Seeder) Log() *logger.Logger {
	return s.log
}

// Envelope starts building an Envelope entity
func (s *Seeder) Envelope() *EnvelopeBuilder {
	return NewEnvelopeBuilder(s.db, s.ctx)
}

// Transaction starts building a Transaction entity
func (s *Seeder) Transaction() *TransactionBuilder {
	return NewTransactionBuilder(s.db, s.ctx)
}

// Goal starts building a Goal entity
func (s *Seeder) Goal() *GoalBuilder {
	return NewGoalBuilder(s.db, s.ctx)
}

// Preference starts building a user preference row
func (s *Seeder) Preference() *PreferenceBuilder {
	return NewPreferenceBuilder(s.db, s.ctx)
}
