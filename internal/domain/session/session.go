package session

import (
	"context"
	"time"
)

// State is the durable per-session runtime state: which agent currently owns
// the conversation and how deep the handoff chain has gone.
type State struct {
	UserID          string    `json:"user_id"`
	SessionID       string    `json:"session_id"`
	ActiveAgent     string    `json:"active_agent"`
	EscalationLevel int       `json:"escalation_level"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Repository stores session state with a TTL so abandoned sessions expire.
type Repository interface {
	Get(ctx context.Context, userID, sessionID string) (*State, error)
	Save(ctx context.Context, state *State, ttl time.Duration) error
	Delete(ctx context.Context, userID, sessionID string) error
}
