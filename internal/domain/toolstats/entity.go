package toolstats

import "time"

// UsageEvent represents a single tool call event (for insertion)
type UsageEvent struct {
	UserID    string    `ch:"user_id"`
	AgentName string    `ch:"agent_name"`
	ToolName  string    `ch:"tool_name"`
	SessionID string    `ch:"session_id"`
	Timestamp time.Time `ch:"timestamp"`

	DurationMs int64 `ch:"duration_ms"`
	Success    bool  `ch:"success"`

	ErrorKind string `ch:"error_kind"`
}

// UsageAggregated represents aggregated tool usage (from materialized view)
type UsageAggregated struct {
	ToolName string    `ch:"tool_name"`
	Hour     time.Time `ch:"hour"`

	CallCount       uint64  `ch:"call_count"`
	ErrorCount      uint64  `ch:"error_count"`
	TotalDurationMs uint64  `ch:"total_duration_ms"`
	AvgDurationMs   float64 `ch:"avg_duration_ms"`
}
