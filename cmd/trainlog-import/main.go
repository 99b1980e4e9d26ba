package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/trainlog/internal/config"
	"github.com/claude/trainlog/internal/importer"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "path to a directory of export files (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	stateDir := flag.String("state-dir", "", "directory of the import state database (default: importer.state_dir under $HOME)")
	force := flag.Bool("force", false, "re-import files that were already imported")
	login := flag.String("login", "local", "login the import log is recorded under")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: trainlog-import -config config.yaml -path /path/to/exports [-dry-run] [-force]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify export directory exists
	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export path does not exist or is not a directory", "path", *exportPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Open state database. Dry runs and forced runs do not consult it.
	var state *importer.StateDB
	if !*dryRun && !*force {
		dir, err := resolveStateDir(*stateDir, cfg.Importer.StateDir)
		if err != nil {
			log.Error("failed to resolve state directory", "error", err)
			os.Exit(1)
		}
		state, err = importer.OpenStateDB(dir)
		if err != nil {
			log.Error("failed to open state database", "error", err)
			os.Exit(1)
		}
		defer state.Close()
	}

	rank := percentile.New(percentile.Config{
		FloorPercentile: cfg.Percentile.FloorPercentile,
		FloorSpan:       cfg.Percentile.FloorSpan,
	})

	// Run import
	start := time.Now()
	imp := importer.New(db, log, rank, state, *dryRun)
	stats, importErr := imp.Import(ctx, *exportPath)
	printStats(log, stats)

	if !*dryRun {
		recordImport(ctx, db, log, *login, *exportPath, stats, time.Since(start), importErr)
	}

	if importErr != nil {
		log.Error("import failed", "error", importErr)
		os.Exit(1)
	}
	log.Info("import complete")
}

// resolveStateDir prefers the flag, then the config value. Relative paths
// are taken from the home directory.
func resolveStateDir(flagDir, cfgDir string) (string, error) {
	dir := flagDir
	if dir == "" {
		dir = cfgDir
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, dir), nil
}

func recordImport(ctx context.Context, db *storage.DB, log *slog.Logger, login, path string,
	stats *importer.Stats, elapsed time.Duration, importErr error) {
	uid, err := db.GetOrCreateUser(ctx, login, login)
	if err != nil {
		log.Warn("import log not recorded", "error", err)
		return
	}

	ms := int(elapsed.Milliseconds())
	meta, _ := json.Marshal(map[string]any{
		"path":                  path,
		"files_skipped":         stats.FilesSkipped,
		"files_errored":         stats.FilesErrored,
		"completions_duplicate": stats.CompletionsDuplicate,
		"completions_rejected":  stats.CompletionsRejected,
		"metcons_unranked":      stats.MetConsUnranked,
		"heatmap_records":       stats.HeatMapRecords,
	})
	raw := json.RawMessage(meta)

	entry := storage.ImportLog{
		UserID:              uid,
		Source:              "cli",
		Status:              "success",
		FilesProcessed:      stats.FilesProcessed,
		ProgramsImported:    stats.ProgramsImported,
		CompletionsInserted: stats.CompletionsInserted,
		MetConsImported:     stats.MetConsImported,
		EngineSessions:      stats.EngineSessions,
		DurationMs:          &ms,
		Metadata:            &raw,
	}
	if importErr != nil {
		msg := importErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if _, err := db.InsertImportLog(ctx, entry); err != nil {
		log.Warn("import log not recorded", "error", err)
	}
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"programs_imported", stats.ProgramsImported,
		"completions_inserted", stats.CompletionsInserted,
		"completions_duplicate", stats.CompletionsDuplicate,
		"completions_rejected", stats.CompletionsRejected,
		"metcons_imported", stats.MetConsImported,
		"metcons_unranked", stats.MetConsUnranked,
		"heatmap_records", stats.HeatMapRecords,
		"engine_sessions", stats.EngineSessions,
	)
}
