package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("trainlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("trainlog training server. Query program, week and day completion progress, rank workout scores against benchmarks, and inspect the exercise by time-domain performance heat map. All data is scoped to the authenticated athlete."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListPrograms, Handler: h.listPrograms},
		server.ServerTool{Tool: toolGetProgramProgress, Handler: h.getProgramProgress},
		server.ServerTool{Tool: toolGetWeekProgress, Handler: h.getWeekProgress},
		server.ServerTool{Tool: toolGetDayProgress, Handler: h.getDayProgress},
		server.ServerTool{Tool: toolComputePercentile, Handler: h.computePercentile},
		server.ServerTool{Tool: toolGetExerciseHeatMap, Handler: h.getExerciseHeatMap},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resPrograms, Handler: h.programs},
		server.ServerResource{Resource: resHeatMap, Handler: h.heatMap},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resPrograms = mcp.NewResource(
	"trainlog://programs",
	"Programs",
	mcp.WithResourceDescription("The athlete's programs with their generated weeks and overall progress"),
	mcp.WithMIMEType("application/json"),
)

var resHeatMap = mcp.NewResource(
	"trainlog://heatmap",
	"Performance Heat Map",
	mcp.WithResourceDescription("Exercise by time-domain percentile matrix across all programs"),
	mcp.WithMIMEType("application/json"),
)
