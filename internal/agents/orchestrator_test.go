package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/internal/adapters/ai"
	"trusio/internal/domain/conversation"
	"trusio/internal/tools"
	"trusio/pkg/errors"
)

func TestOrchestrator_RoutesAndAnswers(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.script = []ai.InvokeResult{{Text: "here is your envelope status"}}

	resp, err := rt.orch.HandleMessage(context.Background(), MessageRequest{
		UserID:    "u1",
		SessionID: "s1",
		Message:   "how is my budget doing",
	})
	require.NoError(t, err)

	assert.Equal(t, "specialist", resp.Agent)
	assert.Equal(t, "here is your envelope status", resp.Text)
	assert.False(t, resp.Degraded)
	assert.GreaterOrEqual(t, resp.DurationMs, int64(0))

	// The exchange was persisted as a user/assistant pair.
	page, err := rt.orch.GetHistory(context.Background(), "u1", "s1", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, conversation.RoleUser, page.Entries[0].Role)
	assert.Equal(t, conversation.RoleAssistant, page.Entries[1].Role)

	// And the session now belongs to the routed agent.
	state, err := rt.sessions.Get(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "specialist", state.ActiveAgent)
}

func TestOrchestrator_ExplicitAgentBypassesRouting(t *testing.T) {
	rt := newTestRuntime(t)

	resp, err := rt.orch.HandleMessage(context.Background(), MessageRequest{
		UserID:    "u1",
		SessionID: "s1",
		Message:   "how is my budget doing",
		Agent:     "closer",
	})
	require.NoError(t, err)
	assert.Equal(t, "closer", resp.Agent)
	assert.Equal(t, "explicitly requested", resp.Routing.Reasoning)
}

func TestOrchestrator_UnknownExplicitAgentFails(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.orch.HandleMessage(context.Background(), MessageRequest{
		UserID:    "u1",
		SessionID: "s1",
		Message:   "hello",
		Agent:     "ghost",
	})
	assert.True(t, errors.Is(err, errors.ErrAgentNotFound))
}

func TestOrchestrator_SessionOwnerKeepsTheConversation(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	_, err := rt.orch.HandleMessage(ctx, MessageRequest{
		UserID: "u1", SessionID: "s1", Message: "about my budget",
	})
	require.NoError(t, err)

	// The followup has no budget keywords but the specialist owns the session.
	resp, err := rt.orch.HandleMessage(ctx, MessageRequest{
		UserID: "u1", SessionID: "s1", Message: "and what about next month",
	})
	require.NoError(t, err)
	assert.Equal(t, "specialist", resp.Agent)
}

func TestOrchestrator_DegradesToDefaultAgentOnFailure(t *testing.T) {
	rt := newTestRuntime(t)
	// First run (specialist) fails, the retry on the default agent succeeds.
	rt.provider.err = assert.AnError

	resp, err := rt.orch.HandleMessage(context.Background(), MessageRequest{
		UserID:    "u1",
		SessionID: "s1",
		Message:   "check my budget please",
	})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, "front_desk", resp.Agent)
	assert.Equal(t, fallbackReply, resp.Text)

	// The degraded exchange is still recorded.
	page, err := rt.orch.GetHistory(context.Background(), "u1", "s1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
}

func TestOrchestrator_DepthCapRoutesToEscalationAgent(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	from, to := "front_desk", "specialist"
	for i := 1; i <= 5; i++ {
		_, err := rt.orch.ExecuteHandoff(ctx, HandoffRequest{
			UserID:    "u1",
			SessionID: "s1",
			FromAgent: from,
			ToAgent:   to,
			Reason:    fmt.Sprintf("bounce %d", i),
		})
		require.NoError(t, err)
		from, to = to, from
	}

	// The chain is at its cap; the conversation goes to the escalation
	// agent instead of failing outright or deepening further.
	record, err := rt.orch.ExecuteHandoff(ctx, HandoffRequest{
		UserID:    "u1",
		SessionID: "s1",
		FromAgent: from,
		ToAgent:   to,
		Reason:    "one too many",
	})
	require.NoError(t, err)
	assert.Equal(t, HandoffCompleted, record.State)
	assert.Equal(t, "closer", record.ToAgent)
	assert.Equal(t, 5, record.EscalationLevel)
	assert.NotNil(t, record.Result)

	state, err := rt.sessions.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "closer", state.ActiveAgent)
	assert.Equal(t, 5, state.EscalationLevel)
}

func TestOrchestrator_GetHistoryPreservesAppendOrder(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.convRepo.Append(ctx, historyEntries("u1", "s1",
		"first", "second", "third")))

	page, err := rt.orch.GetHistory(ctx, "u1", "s1", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "first", page.Entries[0].Content)
	assert.Equal(t, "second", page.Entries[1].Content)
	assert.Equal(t, "third", page.Entries[2].Content)
	assert.Equal(t, 3, page.Total)
}

func TestOrchestrator_GetHistoryPaginates(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.convRepo.Append(ctx, historyEntries("u1", "s1",
		"a", "b", "c", "d", "e")))

	page, err := rt.orch.GetHistory(ctx, "u1", "s1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "c", page.Entries[0].Content)
	assert.Equal(t, "d", page.Entries[1].Content)
	assert.Equal(t, 5, page.Total)
}

func TestOrchestrator_ExecuteToolReturnsFailureValues(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	result := rt.orch.ExecuteTool(ctx, "echo", map[string]interface{}{"text": "hi"}, toolMeta())
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Result["echo"])

	result = rt.orch.ExecuteTool(ctx, "no_such_tool", nil, toolMeta())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestOrchestrator_ListingsAndMetrics(t *testing.T) {
	rt := newTestRuntime(t)

	agents := rt.orch.ListAgents()
	require.Len(t, agents, 3)
	assert.Equal(t, "front_desk", agents[0].Name)

	listed := rt.orch.ListTools("")
	require.Len(t, listed, 1)
	assert.Equal(t, "echo", listed[0].Name())

	rt.orch.ExecuteTool(context.Background(), "echo", map[string]interface{}{"text": "x"}, toolMeta())
	snapshot := rt.orch.GetMetrics(context.Background(), "")
	assert.Equal(t, int64(1), snapshot.Tools["echo"].Calls)
	assert.Equal(t, int64(1), snapshot.ToolsTotal.Calls)
	assert.Equal(t, 0, snapshot.ActiveAgents)

	// Without an analytics store the per-tool trend is simply absent.
	snapshot = rt.orch.GetMetrics(context.Background(), "echo")
	assert.Empty(t, snapshot.ToolTrend)
}

func toolMeta() tools.Metadata {
	return tools.Metadata{UserID: "u1", SessionID: "s1", AgentName: "front_desk"}
}
