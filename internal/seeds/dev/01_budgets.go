package dev

import (
	"context"
	"strings"
	"time"

	"trusio/internal/testsupport/seeds"
)

const devUserID = "dev-user-1"

// SeedBudgets creates a worked budget for the development user (idempotent)
func SeedBudgets(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	groceries, err := s.Envelope().
		WithUserID(devUserID).
		WithName("Groceries").
		WithCategory("groceries").
		WithBudgeted(500).
		WithBalance(454.33).
		Insert()
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			log.Infow("Budget already seeded, skipping", "user_id", devUserID)
			return nil
		}
		return err
	}

	dining, err := s.Envelope().
		WithUserID(devUserID).
		WithName("Dining Out").
		WithCategory("dining").
		WithBudgeted(150).
		WithBalance(137.50).
		Insert()
	if err != nil {
		return err
	}

	_, err = s.Envelope().
		WithUserID(devUserID).
		WithName("Transport").
		WithCategory("transport").
		WithBudgeted(120).
		Insert()
	if err != nil {
		return err
	}

	log.Infow("Created envelopes", "user_id", devUserID)

	transactions := []struct {
		amount      float64
		category    string
		description string
		daysAgo     int
	}{
		{-45.67, "groceries", "Weekly grocery run", 2},
		{-12.50, "dining", "Lunch", 1},
		{-8.40, "transport", "Metro pass top-up", 3},
		{-62.10, "groceries", "Bulk staples", 12},
		{2400.00, "income", "Salary", 5},
	}
	for _, tx := range transactions {
		builder := s.Transaction().
			WithUserID(devUserID).
			WithAmount(tx.amount).
			WithCategory(tx.category).
			WithDescription(tx.description).
			DaysAgo(tx.daysAgo)
		switch tx.category {
		case "groceries":
			builder = builder.WithEnvelope(groceries.ID)
		case "dining":
			builder = builder.WithEnvelope(dining.ID)
		}
		if _, err := builder.Insert(); err != nil {
			return err
		}
	}

	log.Infow("Created transactions", "user_id", devUserID, "count", len(transactions))

	targetDate := time.Now().AddDate(0, 6, 0)
	_, err = s.Goal().
		WithUserID(devUserID).
		WithName("Emergency Fund").
		WithTarget(800).
		WithSaved(200).
		WithTargetDate(targetDate).
		Insert()
	if err != nil {
		return err
	}

	log.Infow("Created goals", "user_id", devUserID)
	return nil
}
