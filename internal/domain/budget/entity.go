package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Envelope is a named budget bucket with an allocated and a remaining balance.
type Envelope struct {
	ID       uuid.UUID       `db:"id"`
	UserID   string          `db:"user_id"`
	Name     string          `db:"name"`
	Category string          `db:"category"`
	Budgeted decimal.Decimal `db:"budgeted"`
	Balance  decimal.Decimal `db:"balance"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Transaction is a single ledger movement. Amounts are negative for spending
// and positive for income, matching the bank feed convention.
type Transaction struct {
	ID          uuid.UUID       `db:"id"`
	UserID      string          `db:"user_id"`
	EnvelopeID  *uuid.UUID      `db:"envelope_id"`
	Amount      decimal.Decimal `db:"amount"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	PostedAt    time.Time       `db:"posted_at"`
}

// Goal is a savings target the coaching agents track progress against.
type Goal struct {
	ID         uuid.UUID       `db:"id"`
	UserID     string          `db:"user_id"`
	Name       string          `db:"name"`
	Target     decimal.Decimal `db:"target"`
	Saved      decimal.Decimal `db:"saved"`
	TargetDate *time.Time      `db:"target_date"`
}

// Snapshot is the financial state assembled for one user: everything an
// agent needs to reason about envelopes, recent activity, and goals.
type Snapshot struct {
	UserID       string
	Envelopes    []Envelope
	Transactions []Transaction
	Goals        []Goal
	FetchedAt    time.Time
}

// TotalSpent sums the absolute value of all negative transaction amounts.
func (s *Snapshot) TotalSpent() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range s.Transactions {
		if tx.Amount.IsNegative() {
			total = total.Add(tx.Amount.Neg())
		}
	}
	return total
}

// SpentByCategory groups spending by transaction category.
func (s *Snapshot) SpentByCategory() map[string]decimal.Decimal {
	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range s.Transactions {
		if tx.Amount.IsNegative() {
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount.Neg())
		}
	}
	return byCategory
}
