package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"trusio/pkg/logger"
)

// Handler serves the liveness, readiness, and detail health endpoints.
// Nil backends are skipped, so a dev deployment without ClickHouse still
// reports ready.
type Handler struct {
	log         *logger.Logger
	postgres    *sqlx.DB
	clickhouse  driver.Conn
	redis       *redis.Client
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health handler over the wired backends.
func New(postgres *sqlx.DB, clickhouse driver.Conn, redisClient *redis.Client, serviceName, version string) *Handler {
	return &Handler{
		log:         logger.Get().With("component", "health"),
		postgres:    postgres,
		clickhouse:  clickhouse,
		redis:       redisClient,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// Status is the aggregate health report.
type Status struct {
	Status    string               `json:"status"` // healthy, degraded, unhealthy
	Service   string               `json:"service"`
	Version   string               `json:"version"`
	Uptime    string               `json:"uptime"`
	Timestamp string               `json:"timestamp"`
	Checks    map[string]Component `json:"checks"`
}

// Component is one backend's health.
type Component struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness answers the Kubernetes liveness probe.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// HandleReadiness answers the readiness probe: unhealthy when any wired
// backend fails its ping.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := h.report(checks)
	code := http.StatusOK
	if healthy < total {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		h.log.Warnf("readiness check failed: %d/%d healthy", healthy, total)
	}
	writeJSON(w, code, status)
}

// HandleHealth returns the detailed report. Partial failure reports
// degraded but still answers 200 so dashboards keep polling.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := h.report(checks)
	code := http.StatusOK
	switch {
	case total > 0 && healthy == 0:
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case healthy < total:
		status.Status = "degraded"
	}
	writeJSON(w, code, status)
}

func (h *Handler) runChecks(ctx context.Context) (map[string]Component, int, int) {
	checks := make(map[string]Component)
	healthy, total := 0, 0

	record := func(name string, c Component) {
		checks[name] = c
		total++
		if c.Status == "healthy" {
			healthy++
		}
	}

	if h.postgres != nil {
		record("postgres", h.check(ctx, "postgres", func(ctx context.Context) error {
			return h.postgres.PingContext(ctx)
		}))
	}
	if h.clickhouse != nil {
		record("clickhouse", h.check(ctx, "clickhouse", func(ctx context.Context) error {
			return h.clickhouse.Ping(ctx)
		}))
	}
	if h.redis != nil {
		record("redis", h.check(ctx, "redis", func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		}))
	}
	return checks, healthy, total
}

func (h *Handler) check(ctx context.Context, name string, ping func(context.Context) error) Component {
	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorf("%s health check failed in %s: %v", name, elapsed, err)
		return Component{Status: "unhealthy", ResponseTime: elapsed.String(), Error: err.Error()}
	}
	return Component{Status: "healthy", ResponseTime: elapsed.String()}
}

func (h *Handler) report(checks map[string]Component) Status {
	return Status{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
