package conversation

import "context"

// Repository persists conversation entries.
type Repository interface {
	// Append writes entries in call order. Timestamps are assigned by the
	// caller before the write and are never changed afterwards.
	Append(ctx context.Context, entries []Entry) error

	// Query returns entries for a session ordered by timestamp ascending,
	// plus the total entry count for pagination.
	Query(ctx context.Context, userID, sessionID string, limit, offset int) ([]Entry, int, error)
}
