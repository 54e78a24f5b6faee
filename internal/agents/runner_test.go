package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/internal/adapters/ai"
	"trusio/internal/tools"
	"trusio/pkg/errors"
)

func TestRunner_PlainAnswer(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.script = []ai.InvokeResult{{Text: "hello there"}}

	def, err := rt.catalog.Get("front_desk")
	require.NoError(t, err)

	result, err := rt.runner.Run(context.Background(), RunRequest{
		Agent: def, UserID: "u1", SessionID: "s1", Message: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Text)
	assert.Equal(t, 1, result.Turns)
	assert.Empty(t, result.ToolResults)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
}

func TestRunner_ToolLoop(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.script = []ai.InvokeResult{
		{ToolCalls: []ai.ToolCall{{ID: "c1", Name: "echo",
			Arguments: map[string]interface{}{"text": "ping"}}}},
		{Text: "the echo said ping"},
	}

	def, err := rt.catalog.Get("front_desk")
	require.NoError(t, err)

	result, err := rt.runner.Run(context.Background(), RunRequest{
		Agent: def, UserID: "u1", SessionID: "s1", Message: "run the echo",
	})
	require.NoError(t, err)
	assert.Equal(t, "the echo said ping", result.Text)
	assert.Equal(t, 2, result.Turns)
	require.Len(t, result.ToolResults, 1)
	assert.True(t, result.ToolResults[0].Success)
	assert.GreaterOrEqual(t, result.ToolResults[0].DurationMs, int64(0))

	// The tool result was fed back to the model as a tool message.
	final := rt.provider.lastRequest()
	last := final.Messages[len(final.Messages)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.Contains(t, last.Content, "ping")

	// And the usage book counted the call.
	usage := rt.executor.Usage().Get("echo")
	assert.Equal(t, int64(1), usage.Calls)
}

func TestRunner_UnpermittedToolBecomesFailureResult(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.script = []ai.InvokeResult{
		{ToolCalls: []ai.ToolCall{{ID: "c1", Name: "echo",
			Arguments: map[string]interface{}{"text": "ping"}}}},
		{Text: "I could not run that"},
	}

	// closer has an empty tool list.
	def, err := rt.catalog.Get("closer")
	require.NoError(t, err)

	result, err := rt.runner.Run(context.Background(), RunRequest{
		Agent: def, UserID: "u1", SessionID: "s1", Message: "run the echo",
	})
	require.NoError(t, err)
	require.Len(t, result.ToolResults, 1)
	assert.False(t, result.ToolResults[0].Success)
	assert.Equal(t, tools.ErrorValidation, result.ToolResults[0].ErrorKind)

	// The denied call never reached the executor.
	usage := rt.executor.Usage().Get("echo")
	assert.Equal(t, int64(0), usage.Calls)
}

func TestRunner_ExhaustedTurnBudgetIsAnError(t *testing.T) {
	rt := newTestRuntime(t)
	// Every reply asks for another tool call, so the loop never settles.
	loop := ai.InvokeResult{ToolCalls: []ai.ToolCall{{ID: "c", Name: "echo",
		Arguments: map[string]interface{}{"text": "again"}}}}
	rt.provider.script = []ai.InvokeResult{loop, loop, loop, loop, loop}

	def, err := rt.catalog.Get("front_desk")
	require.NoError(t, err)

	_, err = rt.runner.Run(context.Background(), RunRequest{
		Agent: def, UserID: "u1", SessionID: "s1", Message: "loop forever",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAgentError, errors.CodeOf(err))
}

func TestRunner_ProviderFailureSurfacesAndCounts(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.err = assert.AnError

	def, err := rt.catalog.Get("front_desk")
	require.NoError(t, err)

	_, err = rt.runner.Run(context.Background(), RunRequest{
		Agent: def, UserID: "u1", SessionID: "s1", Message: "hi",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAgentError, errors.CodeOf(err))

	usage := rt.lifecycle.Usage()["front_desk"]
	assert.Equal(t, int64(1), usage.Calls)
	assert.Equal(t, int64(1), usage.Errors)
}

func TestRunner_BriefingIncludesEnvelopes(t *testing.T) {
	rt := newTestRuntime(t)
	rt.provider.script = []ai.InvokeResult{{Text: "ok"}}

	def, err := rt.catalog.Get("front_desk")
	require.NoError(t, err)

	_, err = rt.runner.Run(context.Background(), RunRequest{
		Agent: def, UserID: "u1", SessionID: "s1", Message: "hi",
	})
	require.NoError(t, err)

	seen := rt.provider.lastRequest()
	assert.Contains(t, seen.Instructions, "Groceries")
	assert.Contains(t, seen.Instructions, "454.33")
	require.Len(t, seen.Tools, 1)
	assert.Equal(t, "echo", seen.Tools[0].Name)
}
