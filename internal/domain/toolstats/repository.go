package toolstats

import (
	"context"
	"time"
)

// Repository defines the interface for tool usage analytics (ClickHouse)
type Repository interface {
	InsertUsage(ctx context.Context, event *UsageEvent) error
	GetByTool(ctx context.Context, toolName string, since time.Time) ([]UsageAggregated, error)
}
