package agents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trusio/internal/metrics"
	"trusio/pkg/logger"
)

// Execution is one live agent run tracked by the lifecycle manager.
type Execution struct {
	ID        uuid.UUID
	AgentName string
	UserID    string
	StartedAt time.Time
	Deadline  time.Time

	cancel context.CancelFunc
}

// AgentUsage aggregates executions per agent, mirroring tool usage stats.
type AgentUsage struct {
	Calls              int64   `json:"calls"`
	Errors             int64   `json:"errors"`
	ForcedTerminations int64   `json:"forcedTerminations"`
	TotalDurationMs    int64   `json:"totalDurationMs"`
	AvgDurationMs      float64 `json:"averageDurationMs"`
}

// Lifecycle tracks active agent executions, enforces a wall-clock budget,
// and keeps per-agent usage counters. Executions that overrun are
// force-cancelled by the sweep, actually interrupting the run via the
// context, not just marking it.
type Lifecycle struct {
	maxDuration   time.Duration
	sweepInterval time.Duration
	log           *logger.Logger

	mu     sync.Mutex
	active map[uuid.UUID]*Execution
	usage  map[string]*AgentUsage
	forced map[uuid.UUID]bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLifecycle constructs the manager.
func NewLifecycle(maxDuration, sweepInterval time.Duration) *Lifecycle {
	if maxDuration <= 0 {
		maxDuration = 45 * time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Second
	}
	return &Lifecycle{
		maxDuration:   maxDuration,
		sweepInterval: sweepInterval,
		log:           logger.Get().With("component", "lifecycle"),
		active:        make(map[uuid.UUID]*Execution),
		usage:         make(map[string]*AgentUsage),
		forced:        make(map[uuid.UUID]bool),
		stop:          make(chan struct{}),
	}
}

// Begin registers a new execution and returns a derived context that the
// sweep can cancel. Callers must End the execution on every path.
func (l *Lifecycle) Begin(ctx context.Context, agentName, userID string) (context.Context, *Execution) {
	runCtx, cancel := context.WithCancel(ctx)
	exec := &Execution{
		ID:        uuid.New(),
		AgentName: agentName,
		UserID:    userID,
		StartedAt: time.Now(),
		Deadline:  time.Now().Add(l.maxDuration),
		cancel:    cancel,
	}

	l.mu.Lock()
	l.active[exec.ID] = exec
	l.mu.Unlock()

	return runCtx, exec
}

// End deregisters the execution and records its outcome.
func (l *Lifecycle) End(exec *Execution, runErr error) {
	duration := time.Since(exec.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	exec.cancel()

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.active, exec.ID)
	wasForced := l.forced[exec.ID]
	delete(l.forced, exec.ID)

	u := l.usage[exec.AgentName]
	if u == nil {
		u = &AgentUsage{}
		l.usage[exec.AgentName] = u
	}
	u.Calls++
	if runErr != nil {
		u.Errors++
	}
	if wasForced {
		u.ForcedTerminations++
	}
	u.TotalDurationMs += duration
	u.AvgDurationMs += (float64(duration) - u.AvgDurationMs) / float64(u.Calls)
}

// ActiveCount reports how many executions are currently running.
func (l *Lifecycle) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Usage returns a copy of the per-agent counters.
func (l *Lifecycle) Usage() map[string]AgentUsage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]AgentUsage, len(l.usage))
	for name, u := range l.usage {
		out[name] = *u
	}
	return out
}

// Sweep force-cancels every execution past its deadline. Exposed for tests;
// the background loop calls it on the sweep interval.
func (l *Lifecycle) Sweep() int {
	now := time.Now()

	l.mu.Lock()
	var overdue []*Execution
	for _, exec := range l.active {
		if now.After(exec.Deadline) {
			overdue = append(overdue, exec)
			l.forced[exec.ID] = true
		}
	}
	l.mu.Unlock()

	for _, exec := range overdue {
		l.log.Warnf("force-ending %s run %s after %s", exec.AgentName, exec.ID, now.Sub(exec.StartedAt))
		exec.cancel()
		metrics.ForcedTerminations.WithLabelValues(exec.AgentName).Inc()
	}
	return len(overdue)
}

// Start launches the background sweep loop.
func (l *Lifecycle) Start() {
	go func() {
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop. Safe to call more than once.
func (l *Lifecycle) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
