package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trusio/internal/domain/session"
	"trusio/pkg/errors"
)

// SessionRepository implements session.Repository using Redis
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new session state repository
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Get retrieves session state
func (r *SessionRepository) Get(ctx context.Context, userID, sessionID string) (*session.State, error) {
	key := r.getKey(userID, sessionID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "session state not found: session=%s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get session state from redis: session=%s", sessionID)
	}

	var state session.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal session state: session=%s", sessionID)
	}

	return &state, nil
}

// Save stores session state with TTL
func (r *SessionRepository) Save(ctx context.Context, state *session.State, ttl time.Duration) error {
	key := r.getKey(state.UserID, state.SessionID)

	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal session state: session=%s", state.SessionID)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save session state to redis: session=%s", state.SessionID)
	}

	return nil
}

// Delete removes session state
func (r *SessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	key := r.getKey(userID, sessionID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete session state from redis: session=%s", sessionID)
	}

	return nil
}

func (r *SessionRepository) getKey(userID, sessionID string) string {
	return fmt.Sprintf("agent_session:%s:%s", userID, sessionID)
}
