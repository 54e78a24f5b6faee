package memory

import (
	"time"

	"github.com/google/uuid"
)

// Preference is a durable user setting the agents learned or were told.
// Writes with the same key overwrite the previous value (last write wins).
type Preference struct {
	UserID     string    `db:"user_id"`
	Key        string    `db:"key"`
	Value      string    `db:"value"`
	Category   string    `db:"category"`
	Confidence float64   `db:"confidence"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Insight is an append-only observation an agent made about the user.
// Retention is bounded; the oldest insights are pruned past the cap.
type Insight struct {
	ID         uuid.UUID `db:"id"`
	UserID     string    `db:"user_id"`
	AgentName  string    `db:"agent_name"`
	Content    string    `db:"content"`
	Category   string    `db:"category"`
	Confidence float64   `db:"confidence"`
	CreatedAt  time.Time `db:"created_at"`
}

// Profile is the assembled per-user memory: the latest preference per key, a
// bounded list of recent insights, and the derived current focus (the most
// frequent category among recent insights).
type Profile struct {
	UserID       string
	Preferences  map[string]Preference
	Insights     []Insight
	CurrentFocus string
}

// Recommendation is advisory output derived from the profile. Producing one
// never mutates state.
type Recommendation struct {
	Text       string
	Category   string
	Confidence float64
}
