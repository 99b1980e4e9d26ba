package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mcptools "github.com/claude/trainlog/internal/mcp"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
	"github.com/claude/trainlog/internal/telemetry"
)

// Store is the storage the server reads directly, outside the service.
type Store interface {
	UserResolver
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc     *service.Service
	db      Store
	log     *slog.Logger
	apiKey  string
	metrics *telemetry.Manager
	whois   WhoIsClient
	router  chi.Router
}

// New creates a new Server with all routes configured. metrics may be nil.
func New(svc *service.Service, db Store, apiKey string, metrics *telemetry.Manager, log *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		db:      db,
		log:     log,
		apiKey:  apiKey,
		metrics: metrics,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		// Write endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/completions", s.handleLogCompletion)
			r.Post("/metcons/complete", s.handleCompleteMetCon)
			r.Post("/engine", s.handleLogEngine)
		})

		r.Get("/me", s.handleMe)
		r.Get("/programs", s.handlePrograms)
		r.Get("/programs/{programID}/progress", s.handleProgramProgress)
		r.Get("/programs/{programID}/weeks/{week}", s.handleWeekProgress)
		r.Get("/programs/{programID}/weeks/{week}/days/{day}", s.handleDayProgress)
		r.Post("/percentile", s.handlePercentile)
		r.Get("/heatmap", s.handleHeatMap)
		r.Get("/imports", s.handleImportLogs)
	})
}

// identity resolves the caller through Tailscale when a local client is
// set, and falls back to the dev user otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.db, s.log)(next).ServeHTTP(w, r)
	})
}

// SetTailscale enables tailnet identity resolution for API requests.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.whois = lc
}

// SetMetricsHandler mounts the Prometheus scrape endpoint at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.router.Handle("/metrics", h)
}

// SetMCPHandler mounts an MCP transport at /mcp. Tool calls run as the
// caller resolved by the identity middleware.
func (s *Server) SetMCPHandler(h http.Handler) {
	s.router.With(s.identity).Handle("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(mcptools.WithUserID(r.Context(), userIDFromContext(r))))
	}))
}
