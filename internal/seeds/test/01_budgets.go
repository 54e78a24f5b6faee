package test

import (
	"context"
	"strings"

	"trusio/internal/testsupport/seeds"
)

const testUserID = "test-user-1"

// SeedBudgets creates a minimal budget fixture for integration tests (idempotent)
func SeedBudgets(ctx context.Context, s *seeds.Seeder) error {
	envelope, err := s.Envelope().
		WithUserID(testUserID).
		WithName("Groceries").
		WithCategory("groceries").
		WithBudgeted(500).
		Insert()
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil
		}
		return err
	}

	_, err = s.Transaction().
		WithUserID(testUserID).
		WithEnvelope(envelope.ID).
		WithAmount(-45.67).
		WithCategory("groceries").
		WithDescription("Grocery run").
		DaysAgo(1).
		Insert()
	if err != nil {
		return err
	}

	_, err = s.Transaction().
		WithUserID(testUserID).
		WithAmount(-12.50).
		WithCategory("dining").
		WithDescription("Lunch").
		DaysAgo(1).
		Insert()
	if err != nil {
		return err
	}

	return nil
}
