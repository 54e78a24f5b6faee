package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trusio_agent_calls_total",
			Help: "Total number of agent executions",
		},
		[]string{"agent", "status"}, // status: success|error|timeout
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trusio_agent_latency_seconds",
			Help:    "Agent execution latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent"},
	)

	// Tool metrics
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trusio_tool_calls_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error|validation_error|timeout|not_found
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trusio_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Handoff metrics
	Handoffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trusio_handoffs_total",
			Help: "Total number of handoff attempts",
		},
		[]string{"from", "to", "outcome"}, // outcome: completed|failed
	)

	// Context cache metrics
	ContextCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trusio_context_cache_hits_total",
			Help: "Context cache hits",
		},
	)

	ContextCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trusio_context_cache_misses_total",
			Help: "Context cache misses (builds)",
		},
	)

	ContextCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trusio_context_cache_evictions_total",
			Help: "Context cache LRU evictions",
		},
	)

	// Lifecycle metrics
	ForcedTerminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trusio_forced_terminations_total",
			Help: "Agent executions force-ended by the lifecycle sweep",
		},
		[]string{"agent"},
	)
)

func init() {
	prometheus.MustRegister(
		AgentCalls,
		AgentLatency,
		ToolCalls,
		ToolLatency,
		Handoffs,
		ContextCacheHits,
		ContextCacheMisses,
		ContextCacheEvictions,
		ForcedTerminations,
	)
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
