package tools

import (
	"sort"
	"sync"
)

// Usage is the rolling call bookkeeping for one tool.
type Usage struct {
	Calls           int64   `json:"calls"`
	Errors          int64   `json:"errors"`
	TotalDurationMs int64   `json:"totalDurationMs"`
	AvgDurationMs   float64 `json:"averageDurationMs"`
}

// UsageBook aggregates per-tool and overall usage. Averages are maintained
// incrementally from the running totals, never recomputed from history.
type UsageBook struct {
	mu      sync.Mutex
	perTool map[string]*Usage
	total   Usage
}

// NewUsageBook constructs an empty usage book.
func NewUsageBook() *UsageBook {
	return &UsageBook{perTool: make(map[string]*Usage)}
}

// Record registers one completed invocation.
func (b *UsageBook) Record(toolName string, durationMs int64, success bool) {
	if durationMs < 0 {
		durationMs = 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	usage, ok := b.perTool[toolName]
	if !ok {
		usage = &Usage{}
		b.perTool[toolName] = usage
	}

	for _, u := range []*Usage{usage, &b.total} {
		u.Calls++
		if !success {
			u.Errors++
		}
		u.TotalDurationMs += durationMs
		u.AvgDurationMs = float64(u.TotalDurationMs) / float64(u.Calls)
	}
}

// Get returns a copy of one tool's usage. The zero value is returned for
// tools that have never been called.
func (b *UsageBook) Get(toolName string) Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	if usage, ok := b.perTool[toolName]; ok {
		return *usage
	}
	return Usage{}
}

// Total returns a copy of the aggregate usage across all tools.
func (b *UsageBook) Total() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Snapshot returns copies of all per-tool usages keyed by tool name.
func (b *UsageBook) Snapshot() map[string]Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]Usage, len(b.perTool))
	for name, usage := range b.perTool {
		out[name] = *usage
	}
	return out
}

// ToolNames returns the names of all tools with recorded usage, sorted.
func (b *UsageBook) ToolNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.perTool))
	for name := range b.perTool {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
