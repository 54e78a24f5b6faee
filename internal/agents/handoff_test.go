package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/pkg/errors"
)

func TestHandoff_CompletesAndAdvancesSession(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	record, err := rt.handoffs.Execute(ctx, HandoffRequest{
		UserID:    "u1",
		SessionID: "s1",
		FromAgent: "front_desk",
		ToAgent:   "specialist",
		Reason:    "needs envelope rework",
		Priority:  3,
	})
	require.NoError(t, err)

	assert.Equal(t, HandoffCompleted, record.State)
	assert.Equal(t, 1, record.EscalationLevel)
	assert.NotNil(t, record.Result)
	assert.Equal(t, "done", record.Result.Text)
	assert.GreaterOrEqual(t, record.DurationMs, int64(0))

	state, err := rt.sessions.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "specialist", state.ActiveAgent)
	assert.Equal(t, 1, state.EscalationLevel)
}

func TestHandoff_TargetSeesReasonAndHistory(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.convRepo.Append(ctx, historyEntries("u1", "s1",
		"my groceries envelope is empty", "Let me look into that.")))

	_, err := rt.handoffs.Execute(ctx, HandoffRequest{
		UserID:    "u1",
		SessionID: "s1",
		FromAgent: "front_desk",
		ToAgent:   "specialist",
		Reason:    "user needs envelope help",
	})
	require.NoError(t, err)

	seen := rt.provider.lastRequest()
	assert.Contains(t, seen.Instructions, "user needs envelope help")

	var carried []string
	for _, msg := range seen.Messages {
		carried = append(carried, msg.Content)
	}
	assert.Contains(t, carried, "my groceries envelope is empty")
	assert.Contains(t, carried, "Let me look into that.")
}

func TestHandoff_UnpermittedTargetFailsWithoutStateChange(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	// closer declares no handoff targets at all.
	record, err := rt.handoffs.Execute(ctx, HandoffRequest{
		UserID:    "u1",
		SessionID: "s1",
		FromAgent: "closer",
		ToAgent:   "front_desk",
		Reason:    "bounce back",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidAgents))
	assert.Equal(t, errors.CodeInvalidAgents, errors.CodeOf(err))
	assert.Equal(t, HandoffFailed, record.State)

	// No session state was created or mutated by the failed attempt.
	_, err = rt.sessions.Get(ctx, "u1", "s1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	// And no agent ran.
	assert.Empty(t, rt.provider.requests)
}

func TestHandoff_InvalidPairs(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  HandoffRequest
	}{
		{"self handoff", HandoffRequest{UserID: "u1", SessionID: "s1",
			FromAgent: "front_desk", ToAgent: "front_desk"}},
		{"unknown source", HandoffRequest{UserID: "u1", SessionID: "s1",
			FromAgent: "ghost", ToAgent: "specialist"}},
		{"unknown target", HandoffRequest{UserID: "u1", SessionID: "s1",
			FromAgent: "front_desk", ToAgent: "ghost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := rt.handoffs.Execute(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidAgents))
			assert.Equal(t, HandoffFailed, record.State)
		})
	}
}

func TestHandoff_DepthCapStopsTheSixthTransfer(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	// Bounce the conversation between the two mutually-permitted agents.
	from, to := "front_desk", "specialist"
	for i := 1; i <= 5; i++ {
		record, err := rt.handoffs.Execute(ctx, HandoffRequest{
			UserID:    "u1",
			SessionID: "s1",
			FromAgent: from,
			ToAgent:   to,
			Reason:    fmt.Sprintf("bounce %d", i),
		})
		require.NoError(t, err, "handoff %d should succeed", i)
		assert.Equal(t, i, record.EscalationLevel)
		from, to = to, from
	}

	record, err := rt.handoffs.Execute(ctx, HandoffRequest{
		UserID:    "u1",
		SessionID: "s1",
		FromAgent: from,
		ToAgent:   to,
		Reason:    "one too many",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrHandoffDepthExceeded))
	assert.Equal(t, errors.CodeHandoffDepthExceeded, errors.CodeOf(err))
	assert.Equal(t, HandoffFailed, record.State)

	// The failed attempt left the chain at its cap.
	state, err := rt.sessions.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, state.EscalationLevel)
}

func TestHandoff_RunFailureLeavesSessionUntouched(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.err = errors.New("model unavailable")
	ctx := context.Background()

	record, err := rt.handoffs.Execute(ctx, HandoffRequest{
		UserID:    "u1",
		SessionID: "s1",
		FromAgent: "front_desk",
		ToAgent:   "specialist",
		Reason:    "try anyway",
	})
	require.Error(t, err)
	assert.Equal(t, HandoffFailed, record.State)

	_, err = rt.sessions.Get(ctx, "u1", "s1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
