package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/trainlog/internal/completion"
	"github.com/claude/trainlog/internal/heatmap"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/progress"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
)

// fakeSource records the last user and arguments it was asked for.
type fakeSource struct {
	userID    int
	programID int64
	week, day int
	filter    string
	err       error
}

func (f *fakeSource) Programs(_ context.Context, userID int) ([]storage.ProgramSummary, error) {
	f.userID = userID
	return []storage.ProgramSummary{{ID: 7, WeeksGenerated: []int{1, 2}}}, f.err
}

func (f *fakeSource) ProgramProgress(_ context.Context, userID int, programID int64) (progress.ProgramProgress, error) {
	f.userID, f.programID = userID, programID
	return progress.ProgramProgress{ProgramID: programID, CurrentDay: 3, TotalDays: 10}, f.err
}

func (f *fakeSource) WeekProgress(_ context.Context, userID int, programID int64, week int) (progress.WeekProgress, error) {
	f.userID, f.programID, f.week = userID, programID, week
	return progress.WeekProgress{Week: week}, f.err
}

func (f *fakeSource) DayProgress(_ context.Context, userID int, programID int64, week, day int) (progress.DayProgress, error) {
	f.userID, f.programID, f.week, f.day = userID, programID, week, day
	if f.err != nil {
		return progress.DayProgress{}, f.err
	}
	return progress.DayProgress{
		Week: week, Day: day, Completed: 2, Total: 4, Percent: 50,
		Blocks: []completion.BlockResult{{Name: "STRENGTH AND POWER", Completed: 2, Total: 4}},
	}, nil
}

func (f *fakeSource) Percentile(_ context.Context, req service.PercentileRequest) (*percentile.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if req.MedianScore == "" {
		return nil, &models.ValidationError{Field: "benchmark", Reason: "median_score and excellent_score are required"}
	}
	return &percentile.Result{Percentile: 70, Tier: percentile.TierGood}, nil
}

func (f *fakeSource) HeatMap(_ context.Context, userID int, programID int64, filter string) (*heatmap.HeatMap, error) {
	f.userID, f.programID, f.filter = userID, programID, filter
	if f.err != nil {
		return nil, f.err
	}
	return heatmap.Build([]models.HeatMapRecord{
		{ExerciseName: "Thrusters", TimeDomain: "5:00-10:00", Percentile: 70},
	}, heatmap.FilterAll), nil
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.Default()}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// resultText returns the text of the first content item of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestNewRegistersTools verifies New builds a server without panicking on
// duplicate or malformed tool definitions.
func TestNewRegistersTools(t *testing.T) {
	if s := New(&fakeSource{}, "test", slog.Default()); s == nil {
		t.Fatal("New returned nil")
	}
}

// TestGetDayProgress verifies arguments are forwarded with the context user
// and the day is returned as JSON.
func TestGetDayProgress(t *testing.T) {
	ds := &fakeSource{}
	h := newHandlers(ds)
	ctx := WithUserID(context.Background(), 5)

	res, err := h.getDayProgress(ctx, callRequest("get_day_progress", map[string]any{
		"program_id": float64(7), "week": float64(2), "day": float64(3),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.userID != 5 || ds.programID != 7 || ds.week != 2 || ds.day != 3 {
		t.Errorf("forwarded (%d, %d, %d, %d), want (5, 7, 2, 3)", ds.userID, ds.programID, ds.week, ds.day)
	}

	var dp progress.DayProgress
	if err := json.Unmarshal([]byte(resultText(t, res)), &dp); err != nil {
		t.Fatal(err)
	}
	if dp.Percent != 50 || len(dp.Blocks) != 1 {
		t.Errorf("day = %+v, want 50%% with one block", dp)
	}
}

// TestRequiredArguments verifies missing arguments produce tool errors rather
// than protocol errors.
func TestRequiredArguments(t *testing.T) {
	h := newHandlers(&fakeSource{})
	ctx := context.Background()

	cases := []struct {
		name string
		call func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]any
		want string
	}{
		{"program progress", h.getProgramProgress, map[string]any{}, "program_id"},
		{"week progress", h.getWeekProgress, map[string]any{"program_id": float64(7)}, "week"},
		{"day progress", h.getDayProgress, map[string]any{"program_id": float64(7), "week": float64(1)}, "day"},
		{"percentile", h.computePercentile, map[string]any{"format": "For Time"}, "score"},
		{"heat map", h.getExerciseHeatMap, map[string]any{"program_id": float64(-1)}, "program_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.call(ctx, callRequest(tc.name, tc.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Fatal("expected tool error")
			}
			if got := resultText(t, res); !strings.Contains(got, tc.want) {
				t.Errorf("error = %q, want mention of %q", got, tc.want)
			}
		})
	}
}

// TestComputePercentile verifies a ranked score and the validation path for
// a missing benchmark.
func TestComputePercentile(t *testing.T) {
	h := newHandlers(&fakeSource{})
	ctx := context.Background()

	res, err := h.computePercentile(ctx, callRequest("compute_percentile", map[string]any{
		"score": "8:45", "format": "For Time", "median_score": "10:00", "excellent_score": "7:30",
	}))
	if err != nil {
		t.Fatal(err)
	}
	var r percentile.Result
	if err := json.Unmarshal([]byte(resultText(t, res)), &r); err != nil {
		t.Fatal(err)
	}
	if r.Percentile != 70 || r.Tier != percentile.TierGood {
		t.Errorf("result = %+v, want 70 Good", r)
	}

	res, err = h.computePercentile(ctx, callRequest("compute_percentile", map[string]any{
		"score": "8:45", "format": "For Time",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "benchmark") {
		t.Errorf("missing benchmark: got %q, want benchmark error", resultText(t, res))
	}
}

// TestGetExerciseHeatMap verifies defaults are passed through and the matrix
// is serialized.
func TestGetExerciseHeatMap(t *testing.T) {
	ds := &fakeSource{}
	h := newHandlers(ds)

	res, err := h.getExerciseHeatMap(context.Background(), callRequest("get_exercise_heatmap", map[string]any{
		"equipment": "barbell",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if ds.programID != 0 || ds.filter != "barbell" {
		t.Errorf("forwarded program=%d filter=%q, want 0 barbell", ds.programID, ds.filter)
	}
	var hm heatmap.HeatMap
	if err := json.Unmarshal([]byte(resultText(t, res)), &hm); err != nil {
		t.Fatal(err)
	}
	if hm.TotalSessions != 1 || len(hm.Cells) != 1 {
		t.Errorf("heat map = %+v, want one cell", hm)
	}
}

// TestToolErrors verifies not-found and internal errors are reported as
// tool errors with distinguishable messages.
func TestToolErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("program 9: %w", storage.ErrNotFound), "not found"},
		{errors.New("connection refused"), "query failed"},
	}
	for _, tc := range cases {
		h := newHandlers(&fakeSource{err: tc.err})
		res, err := h.getProgramProgress(context.Background(), callRequest("get_program_progress", map[string]any{
			"program_id": float64(9),
		}))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError || !strings.Contains(resultText(t, res), tc.want) {
			t.Errorf("error %v: got %q, want %q", tc.err, resultText(t, res), tc.want)
		}
	}
}

// TestProgramsResource verifies the resource lists programs with their
// progress attached.
func TestProgramsResource(t *testing.T) {
	h := newHandlers(&fakeSource{})
	var req mcp.ReadResourceRequest
	req.Params.URI = "trainlog://programs"

	contents, err := h.programs(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}

	var out []struct {
		ID       int64 `json:"id"`
		Progress struct {
			CurrentDay int `json:"current_day"`
		} `json:"progress"`
	}
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != 7 || out[0].Progress.CurrentDay != 3 {
		t.Errorf("programs = %+v, want program 7 on day 3", out)
	}
}
