package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
)

// --- Tool definitions ---

var toolListPrograms = mcp.NewTool("list_programs",
	mcp.WithDescription("List the athlete's programs, newest first, with the weeks generated so far."),
)

var toolGetProgramProgress = mcp.NewTool("get_program_progress",
	mcp.WithDescription("Program-level progress: current training day, completed days, the 20-day month window and task totals."),
	mcp.WithNumber("program_id", mcp.Required(), mcp.Description("Program ID")),
)

var toolGetWeekProgress = mcp.NewTool("get_week_progress",
	mcp.WithDescription("Per-day completion percentages for one week and the next day to train."),
	mcp.WithNumber("program_id", mcp.Required(), mcp.Description("Program ID")),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("Week number, starting at 1")),
)

var toolGetDayProgress = mcp.NewTool("get_day_progress",
	mcp.WithDescription("Block-by-block completion for one training day. Each block reports completed and total units."),
	mcp.WithNumber("program_id", mcp.Required(), mcp.Description("Program ID")),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("Week number, starting at 1")),
	mcp.WithNumber("day", mcp.Required(), mcp.Description("Day number within the week, starting at 1")),
)

var toolComputePercentile = mcp.NewTool("compute_percentile",
	mcp.WithDescription("Rank a workout score against a benchmark given by its median (50th) and excellent (90th percentile) scores. Returns the percentile and performance tier."),
	mcp.WithString("score", mcp.Required(), mcp.Description("Logged score, e.g. '8:45', '5+12' or '150'")),
	mcp.WithString("format", mcp.Required(), mcp.Description("Scoring scheme"),
		mcp.Enum(string(models.FormatForTime), string(models.FormatRoundsForTime), string(models.FormatAMRAP), string(models.FormatScore))),
	mcp.WithString("median_score", mcp.Required(), mcp.Description("Benchmark median score")),
	mcp.WithString("excellent_score", mcp.Required(), mcp.Description("Benchmark excellent score")),
	mcp.WithNumber("reps_per_round", mcp.Description("Reps in one AMRAP round, used to score leftover reps")),
)

var toolGetExerciseHeatMap = mcp.NewTool("get_exercise_heatmap",
	mcp.WithDescription("Exercise by time-domain matrix of session-weighted average percentiles, with row, column and global averages."),
	mcp.WithNumber("program_id", mcp.Description("Limit to one program. Defaults to all programs.")),
	mcp.WithString("equipment", mcp.Description("Equipment filter. Defaults to 'all'."),
		mcp.Enum("all", "barbell", "no_barbell", "gymnastics", "bodyweight")),
)

// --- Tool handlers ---

func (h *handlers) listPrograms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programs, err := h.ds.Programs(ctx, UserIDFromContext(ctx))
	if err != nil {
		return h.toolError("list_programs", err), nil
	}
	if programs == nil {
		programs = []storage.ProgramSummary{}
	}
	return jsonResult(programs)
}

func (h *handlers) getProgramProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programID, err := req.RequireInt("program_id")
	if err != nil {
		return mcp.NewToolResultError("program_id parameter is required"), nil
	}

	pp, err := h.ds.ProgramProgress(ctx, UserIDFromContext(ctx), int64(programID))
	if err != nil {
		return h.toolError("get_program_progress", err), nil
	}
	return jsonResult(pp)
}

func (h *handlers) getWeekProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programID, err := req.RequireInt("program_id")
	if err != nil {
		return mcp.NewToolResultError("program_id parameter is required"), nil
	}
	week, err := req.RequireInt("week")
	if err != nil {
		return mcp.NewToolResultError("week parameter is required"), nil
	}

	wp, err := h.ds.WeekProgress(ctx, UserIDFromContext(ctx), int64(programID), week)
	if err != nil {
		return h.toolError("get_week_progress", err), nil
	}
	return jsonResult(wp)
}

func (h *handlers) getDayProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programID, err := req.RequireInt("program_id")
	if err != nil {
		return mcp.NewToolResultError("program_id parameter is required"), nil
	}
	week, err := req.RequireInt("week")
	if err != nil {
		return mcp.NewToolResultError("week parameter is required"), nil
	}
	day, err := req.RequireInt("day")
	if err != nil {
		return mcp.NewToolResultError("day parameter is required"), nil
	}

	dp, err := h.ds.DayProgress(ctx, UserIDFromContext(ctx), int64(programID), week, day)
	if err != nil {
		return h.toolError("get_day_progress", err), nil
	}
	return jsonResult(dp)
}

func (h *handlers) computePercentile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	score, err := req.RequireString("score")
	if err != nil {
		return mcp.NewToolResultError("score parameter is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format parameter is required"), nil
	}

	res, err := h.ds.Percentile(ctx, service.PercentileRequest{
		Score:          score,
		Format:         models.ScoreFormat(format),
		MedianScore:    req.GetString("median_score", ""),
		ExcellentScore: req.GetString("excellent_score", ""),
		RepsPerRound:   req.GetInt("reps_per_round", 0),
	})
	if err != nil {
		return h.toolError("compute_percentile", err), nil
	}
	return jsonResult(res)
}

func (h *handlers) getExerciseHeatMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programID := req.GetInt("program_id", 0)
	if programID < 0 {
		return mcp.NewToolResultError("program_id must not be negative"), nil
	}

	hm, err := h.ds.HeatMap(ctx, UserIDFromContext(ctx), int64(programID), req.GetString("equipment", ""))
	if err != nil {
		return h.toolError("get_exercise_heatmap", err), nil
	}
	return jsonResult(hm)
}

// toolError turns a data source error into a tool-level error result.
// Caller mistakes are reported as-is, anything else is logged.
func (h *handlers) toolError(tool string, err error) *mcp.CallToolResult {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return mcp.NewToolResultError(ve.Error())
	case errors.Is(err, storage.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	h.log.Error(fmt.Sprintf("mcp %s", tool), "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
