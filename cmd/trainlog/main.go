package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/tsnet"

	"github.com/claude/trainlog/internal/cache"
	"github.com/claude/trainlog/internal/config"
	mcptools "github.com/claude/trainlog/internal/mcp"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/server"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
	"github.com/claude/trainlog/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	mcpStdio := flag.Bool("mcp-stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	remote := flag.String("remote", "", "with -mcp-stdio, read from a remote trainlog server instead of the database")
	flag.Parse()

	// stdout carries the MCP protocol in stdio mode.
	logOut := os.Stdout
	if *mcpStdio {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("trainlog starting", "version", Version)

	if *mcpStdio && *remote != "" {
		log.Info("remote MCP mode", "server", *remote)
		serveStdio(mcptools.NewHTTPClient(*remote), log)
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Metrics
	var metrics *telemetry.Manager
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := telemetry.SetupPrometheus(
			pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}),
		)
		metrics = telemetry.NewManager(cfg.Metrics.Namespace, "api", reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	// Aggregation service
	var agg *cache.Cache
	if cfg.Cache.SizeMB > 0 {
		agg = cache.New(cfg.Cache.SizeMB, time.Duration(cfg.Cache.TTLSeconds)*time.Second, metrics)
	}
	rank := percentile.New(percentile.Config{
		FloorPercentile: cfg.Percentile.FloorPercentile,
		FloorSpan:       cfg.Percentile.FloorSpan,
	})
	svc := service.New(db, rank, agg, metrics, log)

	if *mcpStdio {
		serveStdio(svc, log)
		return
	}

	// Create server
	srv := server.New(svc, db, cfg.Auth.APIKey, metrics, log)
	if metricsHandler != nil {
		srv.SetMetricsHandler(metricsHandler)
	}
	srv.SetMCPHandler(mcpserver.NewStreamableHTTPServer(
		mcptools.New(svc, Version, log),
		mcpserver.WithStateLess(true),
	))

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// serveStdio runs the MCP server on stdin/stdout until the client disconnects.
func serveStdio(ds mcptools.DataSource, log *slog.Logger) {
	if err := mcpserver.ServeStdio(mcptools.New(ds, Version, log)); err != nil {
		log.Error("mcp stdio error", "error", err)
		os.Exit(1)
	}
}
