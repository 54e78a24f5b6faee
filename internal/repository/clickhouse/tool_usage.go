package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"trusio/internal/domain/toolstats"
	"trusio/pkg/errors"
)

// ToolUsageRepository implements toolstats.Repository over ClickHouse
type ToolUsageRepository struct {
	conn driver.Conn
}

// NewToolUsageRepository creates a new tool usage repository
func NewToolUsageRepository(conn driver.Conn) *ToolUsageRepository {
	return &ToolUsageRepository{conn: conn}
}

// InsertUsage writes a single tool usage event
func (r *ToolUsageRepository) InsertUsage(ctx context.Context, event *toolstats.UsageEvent) error {
	query := `
		INSERT INTO tool_usage (
			user_id, agent_name, tool_name, session_id, timestamp,
			duration_ms, success, error_kind
		)
	`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return errors.Wrap(err, "prepare tool usage batch")
	}

	if err := batch.AppendStruct(event); err != nil {
		return errors.Wrap(err, "append tool usage event")
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "send tool usage batch")
	}
	return nil
}

// GetByTool returns hourly aggregates for one tool since the given time
func (r *ToolUsageRepository) GetByTool(ctx context.Context, toolName string, since time.Time) ([]toolstats.UsageAggregated, error) {
	query := `
		SELECT
			tool_name,
			toStartOfHour(timestamp) AS hour,
			count() AS call_count,
			countIf(NOT success) AS error_count,
			sum(duration_ms) AS total_duration_ms,
			avg(duration_ms) AS avg_duration_ms
		FROM tool_usage
		WHERE tool_name = ? AND timestamp >= ?
		GROUP BY tool_name, hour
		ORDER BY hour ASC
	`

	var rows []toolstats.UsageAggregated
	if err := r.conn.Select(ctx, &rows, query, toolName, since); err != nil {
		return nil, errors.Wrap(err, "select tool usage aggregates")
	}
	return rows, nil
}
