package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/trainlog/internal/heatmap"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/progress"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
)

// HTTPClient implements DataSource by calling the trainlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale). The server
// resolves the athlete from the tailnet peer, so user IDs are ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: encode body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func programPath(programID int64) string {
	return "/api/v1/programs/" + strconv.FormatInt(programID, 10)
}

func (c *HTTPClient) Programs(ctx context.Context, _ int) ([]storage.ProgramSummary, error) {
	var programs []storage.ProgramSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/programs", nil, nil, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

func (c *HTTPClient) ProgramProgress(ctx context.Context, _ int, programID int64) (progress.ProgramProgress, error) {
	var pp progress.ProgramProgress
	err := c.do(ctx, http.MethodGet, programPath(programID)+"/progress", nil, nil, &pp)
	return pp, err
}

func (c *HTTPClient) WeekProgress(ctx context.Context, _ int, programID int64, week int) (progress.WeekProgress, error) {
	var wp progress.WeekProgress
	path := fmt.Sprintf("%s/weeks/%d", programPath(programID), week)
	err := c.do(ctx, http.MethodGet, path, nil, nil, &wp)
	return wp, err
}

func (c *HTTPClient) DayProgress(ctx context.Context, _ int, programID int64, week, day int) (progress.DayProgress, error) {
	var dp progress.DayProgress
	path := fmt.Sprintf("%s/weeks/%d/days/%d", programPath(programID), week, day)
	err := c.do(ctx, http.MethodGet, path, nil, nil, &dp)
	return dp, err
}

func (c *HTTPClient) Percentile(ctx context.Context, req service.PercentileRequest) (*percentile.Result, error) {
	var res percentile.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/percentile", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) HeatMap(ctx context.Context, _ int, programID int64, filter string) (*heatmap.HeatMap, error) {
	params := url.Values{}
	if programID > 0 {
		params.Set("program", strconv.FormatInt(programID, 10))
	}
	if filter != "" {
		params.Set("equipment", filter)
	}

	var hm heatmap.HeatMap
	if err := c.do(ctx, http.MethodGet, "/api/v1/heatmap", params, nil, &hm); err != nil {
		return nil, err
	}
	return &hm, nil
}
