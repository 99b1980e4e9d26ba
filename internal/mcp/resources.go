package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/trainlog/internal/progress"
	"github.com/claude/trainlog/internal/storage"
)

type programOverview struct {
	storage.ProgramSummary
	Progress *progress.ProgramProgress `json:"progress,omitempty"`
}

func (h *handlers) programs(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	programs, err := h.ds.Programs(ctx, uid)
	if err != nil {
		return nil, err
	}

	out := make([]programOverview, 0, len(programs))
	for _, p := range programs {
		o := programOverview{ProgramSummary: p}
		pp, err := h.ds.ProgramProgress(ctx, uid, p.ID)
		if err != nil {
			h.log.Warn("programs: progress failed", "program_id", p.ID, "error", err)
		} else {
			o.Progress = &pp
		}
		out = append(out, o)
	}

	return textResource(req.Params.URI, out)
}

func (h *handlers) heatMap(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	hm, err := h.ds.HeatMap(ctx, UserIDFromContext(ctx), 0, "")
	if err != nil {
		return nil, err
	}
	return textResource(req.Params.URI, hm)
}

func textResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
