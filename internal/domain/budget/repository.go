package budget

import "context"

// Repository reads financial state from persistence. The budgeting ledger
// itself (transfers, envelope funding rules) is owned by another service;
// this runtime only consumes read models.
type Repository interface {
	GetSnapshot(ctx context.Context, userID string) (*Snapshot, error)
}
