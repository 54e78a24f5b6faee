package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Entry is one turn of a session's conversation. Entries are append-only and
// never mutated after write; reads are ordered by timestamp ascending.
type Entry struct {
	ID        uuid.UUID `db:"id"`
	UserID    string    `db:"user_id"`
	SessionID string    `db:"session_id"`
	Role      Role      `db:"role"`
	Content   string    `db:"content"`
	AgentName string    `db:"agent_name"`
	Timestamp time.Time `db:"created_at"`
}

// Page is a slice of a session's history plus pagination info.
type Page struct {
	Entries []Entry
	Total   int
	Limit   int
	Offset  int
}
