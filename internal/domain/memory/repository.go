package memory

import "context"

// Repository persists user memory. Implementations must make preference
// writes upserts keyed by (user, key) and keep insights append-only.
type Repository interface {
	UpsertPreference(ctx context.Context, pref *Preference) error
	GetPreferences(ctx context.Context, userID string) ([]Preference, error)

	InsertInsight(ctx context.Context, insight *Insight) error

	// GetRecentInsights returns up to limit insights ordered newest first.
	GetRecentInsights(ctx context.Context, userID string, limit int) ([]Insight, error)

	// PruneInsights deletes the oldest insights beyond keep for the user and
	// returns how many rows were removed.
	PruneInsights(ctx context.Context, userID string, keep int) (int64, error)
}
