package tools

import (
	"context"
	"fmt"
	"time"

	"trusio/internal/domain/toolstats"
	"trusio/internal/metrics"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// ErrorKind tags why a tool invocation failed.
type ErrorKind string

const (
	ErrorNone       ErrorKind = ""
	ErrorNotFound   ErrorKind = "not_found"
	ErrorValidation ErrorKind = "validation"
	ErrorTimeout    ErrorKind = "timeout"
	ErrorExecution  ErrorKind = "execution"
)

// ExecutionResult is the value every tool invocation resolves to. Failures
// are carried here, never thrown past the executor boundary.
type ExecutionResult struct {
	ToolName   string                 `json:"toolName"`
	Success    bool                   `json:"success"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ErrorKind  ErrorKind              `json:"errorKind,omitempty"`
	DurationMs int64                  `json:"durationMs"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Executor validates, invokes, and accounts for tool calls.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	book     *UsageBook
	usage    toolstats.Repository // optional analytics sink
	log      *logger.Logger
}

// NewExecutor creates a tool executor. usage may be nil when analytics are
// disabled.
func NewExecutor(registry *Registry, timeout time.Duration, usage toolstats.Repository) *Executor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{
		registry: registry,
		timeout:  timeout,
		book:     NewUsageBook(),
		usage:    usage,
		log:      logger.Get().With("component", "tool_executor"),
	}
}

// Usage exposes the rolling metrics book.
func (e *Executor) Usage() *UsageBook {
	return e.book
}

// Trend returns hourly aggregates for one tool from the analytics sink.
// Without a sink there is no trend to report.
func (e *Executor) Trend(ctx context.Context, toolName string, since time.Time) ([]toolstats.UsageAggregated, error) {
	if e.usage == nil {
		return nil, nil
	}
	return e.usage.GetByTool(ctx, toolName, since)
}

// Execute runs one tool call. The returned result always has
// DurationMs >= 0; an unknown tool or invalid parameters yield a failure
// result without invoking anything.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) ExecutionResult {
	start := time.Now()

	tool, ok := e.registry.Get(toolName)
	if !ok {
		metrics.ToolCalls.WithLabelValues(toolName, "not_found").Inc()
		return ExecutionResult{
			ToolName:  toolName,
			Success:   false,
			Error:     "tool not found",
			ErrorKind: ErrorNotFound,
			Timestamp: start,
		}
	}

	if err := tool.Schema().Validate(params); err != nil {
		result := e.finish(ctx, toolName, start, nil, err, ErrorValidation)
		return result
	}

	output, err := e.invoke(ctx, tool, params)

	kind := ErrorNone
	if err != nil {
		kind = ErrorExecution
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errors.ErrTimeout) {
			kind = ErrorTimeout
		}
	}

	return e.finish(ctx, toolName, start, output, err, kind)
}

// invoke runs the tool handler under a deadline and converts panics into
// errors so one misbehaving tool cannot abort the agent turn.
func (e *Executor) invoke(ctx context.Context, tool Tool, params map[string]interface{}) (output map[string]interface{}, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("tool panicked: %v", r)
			}
			close(done)
		}()
		output, err = tool.Execute(ctx, params)
	}()

	select {
	case <-done:
		return output, err
	case <-ctx.Done():
		// The handler keeps the cancelled context and is expected to stop;
		// the invocation is already accounted as timed out.
		<-done
		return nil, errors.Wrap(errors.ErrTimeout, tool.Name())
	}
}

// finish closes the books for one invocation.
func (e *Executor) finish(ctx context.Context, toolName string, start time.Time, output map[string]interface{}, err error, kind ErrorKind) ExecutionResult {
	durationMs := time.Since(start).Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	success := err == nil

	e.book.Record(toolName, durationMs, success)

	status := "success"
	if !success {
		status = string(kind)
		if status == "" {
			status = "error"
		}
	}
	metrics.ToolCalls.WithLabelValues(toolName, status).Inc()
	metrics.ToolLatency.WithLabelValues(toolName).Observe(float64(durationMs) / 1000)

	if e.usage != nil {
		event := &toolstats.UsageEvent{
			ToolName:   toolName,
			Timestamp:  time.Now(),
			DurationMs: durationMs,
			Success:    success,
			ErrorKind:  string(kind),
		}
		if meta, ok := MetadataFromContext(ctx); ok {
			event.UserID = meta.UserID
			event.SessionID = meta.SessionID
			event.AgentName = meta.AgentName
		}
		go func() {
			insertCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.usage.InsertUsage(insertCtx, event); err != nil {
				e.log.Warnf("tool usage insert failed: %v", err)
			}
		}()
	}

	result := ExecutionResult{
		ToolName:   toolName,
		Success:    success,
		Result:     output,
		DurationMs: durationMs,
		Timestamp:  start,
	}
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = kind
		e.log.Debugf("tool %s failed (%s): %v", toolName, kind, err)
	}
	return result
}

// Specs renders the given tool names as provider tool specs, skipping names
// missing from the registry.
func (e *Executor) Specs(names []string) []ToolSpec {
	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		tool, ok := e.registry.Get(name)
		if !ok {
			continue
		}
		specs = append(specs, ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema().JSONSchema(),
		})
	}
	return specs
}

// ToolSpec mirrors the provider-facing tool advertisement.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// String renders a compact human-readable summary of a result for logs.
func (r ExecutionResult) String() string {
	if r.Success {
		return fmt.Sprintf("%s ok in %dms", r.ToolName, r.DurationMs)
	}
	return fmt.Sprintf("%s failed (%s) in %dms: %s", r.ToolName, r.ErrorKind, r.DurationMs, r.Error)
}
