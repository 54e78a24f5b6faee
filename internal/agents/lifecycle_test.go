package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/pkg/errors"
)

func TestLifecycle_TracksActiveExecutions(t *testing.T) {
	lc := NewLifecycle(time.Minute, time.Minute)
	defer lc.Stop()

	ctx, exec := lc.Begin(context.Background(), "budget_coach", "u1")
	assert.Equal(t, 1, lc.ActiveCount())
	assert.NoError(t, ctx.Err())

	lc.End(exec, nil)
	assert.Equal(t, 0, lc.ActiveCount())

	usage := lc.Usage()["budget_coach"]
	assert.Equal(t, int64(1), usage.Calls)
	assert.Equal(t, int64(0), usage.Errors)
	assert.GreaterOrEqual(t, usage.TotalDurationMs, int64(0))
}

func TestLifecycle_RecordsErrors(t *testing.T) {
	lc := NewLifecycle(time.Minute, time.Minute)
	defer lc.Stop()

	_, exec := lc.Begin(context.Background(), "budget_coach", "u1")
	lc.End(exec, errors.New("boom"))

	usage := lc.Usage()["budget_coach"]
	assert.Equal(t, int64(1), usage.Calls)
	assert.Equal(t, int64(1), usage.Errors)
}

func TestLifecycle_SweepCancelsOverdueRuns(t *testing.T) {
	lc := NewLifecycle(10*time.Millisecond, time.Hour)
	defer lc.Stop()

	ctx, exec := lc.Begin(context.Background(), "budget_coach", "u1")
	time.Sleep(20 * time.Millisecond)

	cancelled := lc.Sweep()
	assert.Equal(t, 1, cancelled)

	// The derived context was actually cancelled, not just flagged.
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("sweep did not cancel the execution context")
	}

	lc.End(exec, ctx.Err())
	usage := lc.Usage()["budget_coach"]
	assert.Equal(t, int64(1), usage.ForcedTerminations)
	assert.Equal(t, int64(1), usage.Errors)
}

func TestLifecycle_SweepIgnoresHealthyRuns(t *testing.T) {
	lc := NewLifecycle(time.Minute, time.Hour)
	defer lc.Stop()

	ctx, exec := lc.Begin(context.Background(), "budget_coach", "u1")
	assert.Equal(t, 0, lc.Sweep())
	require.NoError(t, ctx.Err())
	lc.End(exec, nil)
}

func TestLifecycle_AverageDuration(t *testing.T) {
	lc := NewLifecycle(time.Minute, time.Minute)
	defer lc.Stop()

	for i := 0; i < 3; i++ {
		_, exec := lc.Begin(context.Background(), "budget_coach", "u1")
		lc.End(exec, nil)
	}

	usage := lc.Usage()["budget_coach"]
	assert.Equal(t, int64(3), usage.Calls)
	assert.GreaterOrEqual(t, usage.AvgDurationMs, 0.0)
}
