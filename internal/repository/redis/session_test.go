package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/internal/domain/session"
	"trusio/pkg/errors"
)

func newTestRepository(t *testing.T) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionRepository(client), mr
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	state := &session.State{
		UserID:          "u1",
		SessionID:       "s1",
		ActiveAgent:     "budget_coach",
		EscalationLevel: 2,
		UpdatedAt:       time.Now(),
	}

	require.NoError(t, repo.Save(ctx, state, time.Hour))

	got, err := repo.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "budget_coach", got.ActiveAgent)
	assert.Equal(t, 2, got.EscalationLevel)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Get(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSessionRepository_TTLExpiry(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	state := &session.State{UserID: "u1", SessionID: "s1", ActiveAgent: "budget_coach"}
	require.NoError(t, repo.Save(ctx, state, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "u1", "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSessionRepository_Delete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	state := &session.State{UserID: "u1", SessionID: "s1", ActiveAgent: "budget_coach"}
	require.NoError(t, repo.Save(ctx, state, time.Hour))
	require.NoError(t, repo.Delete(ctx, "u1", "s1"))

	_, err := repo.Get(ctx, "u1", "s1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
