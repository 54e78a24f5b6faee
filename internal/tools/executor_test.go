package tools

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/internal/domain/toolstats"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()

	echo := New(Definition{
		Name:        "echo",
		Description: "Echo a message back",
		Category:    "testing",
		RiskLevel:   RiskLow,
		Schema: Schema{Params: []ParamSpec{
			{Name: "message", Type: ParamString, Required: true},
		}},
	}, func(_ context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"echo": params["message"]}, nil
	})
	require.NoError(t, registry.Register(echo))

	boom := New(Definition{
		Name:      "boom",
		Category:  "testing",
		RiskLevel: RiskLow,
	}, func(_ context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		panic("kaboom")
	})
	require.NoError(t, registry.Register(boom))

	slow := New(Definition{
		Name:      "slow",
		Category:  "testing",
		RiskLevel: RiskLow,
	}, func(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		select {
		case <-time.After(5 * time.Second):
			return map[string]interface{}{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	require.NoError(t, registry.Register(slow))

	registry.Freeze()
	return registry
}

func TestExecutor_Execute(t *testing.T) {
	registry := newTestRegistry(t)
	executor := NewExecutor(registry, 50*time.Millisecond, nil)
	ctx := context.Background()

	t.Run("success increments calls and keeps duration non-negative", func(t *testing.T) {
		before := executor.Usage().Get("echo").Calls

		result := executor.Execute(ctx, "echo", map[string]interface{}{"message": "hi"})
		require.True(t, result.Success)
		assert.Equal(t, "hi", result.Result["echo"])
		assert.GreaterOrEqual(t, result.DurationMs, int64(0))

		usage := executor.Usage().Get("echo")
		assert.Equal(t, before+1, usage.Calls)
		assert.Equal(t, int64(0), usage.Errors)
	})

	t.Run("unknown tool returns failure value", func(t *testing.T) {
		result := executor.Execute(ctx, "no_such_tool", nil)
		require.False(t, result.Success)
		assert.Equal(t, ErrorNotFound, result.ErrorKind)
		assert.Equal(t, "tool not found", result.Error)
	})

	t.Run("validation failure never invokes the tool", func(t *testing.T) {
		result := executor.Execute(ctx, "echo", map[string]interface{}{})
		require.False(t, result.Success)
		assert.Equal(t, ErrorValidation, result.ErrorKind)

		usage := executor.Usage().Get("echo")
		assert.Equal(t, usage.Calls, usage.Errors+1, "one success plus validation errors")
	})

	t.Run("unknown parameter is a validation failure", func(t *testing.T) {
		result := executor.Execute(ctx, "echo", map[string]interface{}{
			"message": "hi",
			"bogus":   true,
		})
		require.False(t, result.Success)
		assert.Equal(t, ErrorValidation, result.ErrorKind)
	})

	t.Run("panic is converted into an execution failure", func(t *testing.T) {
		result := executor.Execute(ctx, "boom", map[string]interface{}{})
		require.False(t, result.Success)
		assert.Equal(t, ErrorExecution, result.ErrorKind)
		assert.Contains(t, result.Error, "kaboom")
	})

	t.Run("timeout counts as call and error", func(t *testing.T) {
		result := executor.Execute(ctx, "slow", map[string]interface{}{})
		require.False(t, result.Success)
		assert.Equal(t, ErrorTimeout, result.ErrorKind)

		usage := executor.Usage().Get("slow")
		assert.Equal(t, int64(1), usage.Calls)
		assert.Equal(t, int64(1), usage.Errors)
	})

	t.Run("aggregate tracks every invocation", func(t *testing.T) {
		total := executor.Usage().Total()
		assert.Greater(t, total.Calls, int64(0))
		assert.GreaterOrEqual(t, total.AvgDurationMs, float64(0))
	})
}

// fakeUsageSink is an in-memory stand-in for the ClickHouse analytics store.
type fakeUsageSink struct {
	mu         sync.Mutex
	events     []*toolstats.UsageEvent
	aggregates []toolstats.UsageAggregated
}

func (f *fakeUsageSink) InsertUsage(_ context.Context, event *toolstats.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeUsageSink) GetByTool(_ context.Context, toolName string, since time.Time) ([]toolstats.UsageAggregated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []toolstats.UsageAggregated
	for _, row := range f.aggregates {
		if row.ToolName == toolName && !row.Hour.Before(since) {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestExecutor_Trend(t *testing.T) {
	now := time.Now().Truncate(time.Hour)
	sink := &fakeUsageSink{aggregates: []toolstats.UsageAggregated{
		{ToolName: "echo", Hour: now, CallCount: 12, ErrorCount: 1, AvgDurationMs: 8.5},
		{ToolName: "echo", Hour: now.Add(-48 * time.Hour), CallCount: 3},
		{ToolName: "slow", Hour: now, CallCount: 7},
	}}
	executor := NewExecutor(newTestRegistry(t), 50*time.Millisecond, sink)
	ctx := context.Background()

	trend, err := executor.Trend(ctx, "echo", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, uint64(12), trend[0].CallCount)
	assert.Equal(t, uint64(1), trend[0].ErrorCount)

	// No analytics sink configured means no trend, not an error.
	bare := NewExecutor(newTestRegistry(t), 50*time.Millisecond, nil)
	trend, err = bare.Trend(ctx, "echo", now)
	require.NoError(t, err)
	assert.Nil(t, trend)
}

func TestUsageBook_IncrementalAverage(t *testing.T) {
	book := NewUsageBook()

	book.Record("x", 10, true)
	book.Record("x", 30, false)

	usage := book.Get("x")
	assert.Equal(t, int64(2), usage.Calls)
	assert.Equal(t, int64(1), usage.Errors)
	assert.Equal(t, int64(40), usage.TotalDurationMs)
	assert.Equal(t, float64(20), usage.AvgDurationMs)

	// Never called: zero value, no negative average.
	assert.Equal(t, Usage{}, book.Get("never"))
}
