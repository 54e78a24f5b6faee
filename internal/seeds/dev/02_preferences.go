package dev

import (
	"context"

	"trusio/internal/testsupport/seeds"
)

// SeedPreferences stores starter preferences for the development user (idempotent)
func SeedPreferences(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	prefs := []struct {
		key      string
		value    string
		category string
	}{
		{"communication_style", "concise", "communication"},
		{"budgeting_method", "envelope", "budgeting"},
		{"savings_priority", "emergency_fund", "goals"},
	}
	for _, p := range prefs {
		_, err := s.Preference().
			WithUserID(devUserID).
			WithKey(p.key).
			WithValue(p.value).
			WithCategory(p.category).
			Insert()
		if err != nil {
			return err
		}
	}

	log.Infow("Stored preferences", "user_id", devUserID, "count", len(prefs))
	return nil
}
