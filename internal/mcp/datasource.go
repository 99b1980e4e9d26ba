package mcp

import (
	"context"

	"github.com/claude/trainlog/internal/heatmap"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/progress"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
)

// DataSource abstracts the aggregation layer for MCP tools. Both
// *service.Service (local) and HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	Programs(ctx context.Context, userID int) ([]storage.ProgramSummary, error)
	ProgramProgress(ctx context.Context, userID int, programID int64) (progress.ProgramProgress, error)
	WeekProgress(ctx context.Context, userID int, programID int64, week int) (progress.WeekProgress, error)
	DayProgress(ctx context.Context, userID int, programID int64, week, day int) (progress.DayProgress, error)
	Percentile(ctx context.Context, req service.PercentileRequest) (*percentile.Result, error)
	HeatMap(ctx context.Context, userID int, programID int64, filter string) (*heatmap.HeatMap, error)
}

// Compile-time check: *service.Service satisfies DataSource.
var _ DataSource = (*service.Service)(nil)
