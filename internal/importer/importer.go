// Package importer loads training-data export files (programs, completion
// records, MetCon scores and Engine sessions) into the database.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/trainlog/internal/heatmap"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/storage"
)

// Store is the subset of storage the importer writes through.
type Store interface {
	UpsertProgram(ctx context.Context, r storage.ProgramRow) (int64, error)
	GetProgram(ctx context.Context, userID int, programID int64) (*storage.ProgramRow, error)
	InsertCompletions(ctx context.Context, rows []models.CompletionRecord) (int64, error)
	CompleteMetCon(ctx context.Context, mc models.MetConCompletion, records []models.HeatMapRecord) (uuid.UUID, error)
	UpsertEngineSession(ctx context.Context, s models.EngineSession) error
}

// ExportFile is one JSON export of an athlete's training data.
type ExportFile struct {
	UserID      int                       `json:"user_id"`
	Programs    []ExportProgram           `json:"programs"`
	Completions []models.CompletionRecord `json:"performance_logs"`
	MetCons     []ExportMetCon            `json:"metcon_completions"`
	Engine      []models.EngineSession    `json:"engine_sessions"`
}

// ExportProgram is a program snapshot inside an export file.
type ExportProgram struct {
	ID             int64           `json:"id"`
	WeeksGenerated []int           `json:"weeks_generated"`
	ProgramData    json.RawMessage `json:"program_data"`
}

// ExportMetCon is a completed MetCon inside an export file. The percentile is
// recomputed from the score against the program's benchmark.
type ExportMetCon struct {
	ProgramID   int64     `json:"program_id"`
	Week        int       `json:"week"`
	Day         int       `json:"day"`
	MetConID    int64     `json:"metcon_id"`
	Score       string    `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	ProgramsImported     int
	CompletionsInserted  int64
	CompletionsDuplicate int64
	CompletionsRejected  int
	MetConsImported      int
	MetConsUnranked      int
	HeatMapRecords       int
	EngineSessions       int
}

// Records returns the number of rows written (or counted, in dry-run mode).
func (s *Stats) Records() int64 {
	return int64(s.ProgramsImported) + s.CompletionsInserted + int64(s.MetConsImported) + int64(s.EngineSessions)
}

// Importer reads export files from a directory and inserts their data.
type Importer struct {
	db     Store
	log    *slog.Logger
	rank   *percentile.Engine
	state  *StateDB
	dryRun bool
	stats  Stats
}

// New creates a new Importer. state may be nil, in which case every file is imported.
func New(db Store, log *slog.Logger, rank *percentile.Engine, state *StateDB, dryRun bool) *Importer {
	if rank == nil {
		rank = percentile.New(percentile.DefaultConfig())
	}
	return &Importer{db: db, log: log, rank: rank, state: state, dryRun: dryRun}
}

// Import processes all .json export files under dir in lexical order.
// A file that fails to parse is counted and skipped; a failed write aborts.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return &imp.stats, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, dir, path); err != nil {
			return &imp.stats, fmt.Errorf("importing %s: %w", filepath.Base(path), err)
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, dir, path string) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = path
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var hash string
	if imp.state != nil {
		hash, err = HashFile(path)
		if err != nil {
			return fmt.Errorf("hashing: %w", err)
		}
		done, err := imp.state.IsImported(rel, info.Size(), hash)
		if err != nil {
			return err
		}
		if done {
			imp.stats.FilesSkipped++
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file ExportFile
	if err := json.Unmarshal(data, &file); err != nil {
		imp.log.Warn("parse failed", "file", rel, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	if file.UserID <= 0 {
		imp.log.Warn("export without user_id", "file", rel)
		imp.stats.FilesErrored++
		return nil
	}

	before := imp.stats.Records()
	if err := imp.importExport(ctx, &file); err != nil {
		return err
	}
	imp.stats.FilesProcessed++

	if imp.state != nil && !imp.dryRun {
		return imp.state.MarkImported(rel, info.Size(), hash, int(imp.stats.Records()-before))
	}
	return nil
}

// importExport writes one export. Programs go first so that MetCon scores
// can be ranked against the benchmarks they carry.
func (imp *Importer) importExport(ctx context.Context, file *ExportFile) error {
	programs := make(map[int64]*models.Program, len(file.Programs))

	// Phase 1: program snapshots
	for _, ep := range file.Programs {
		row := storage.ProgramRow{ID: ep.ID, UserID: file.UserID, WeeksGenerated: ep.WeeksGenerated, Data: ep.ProgramData}
		p, problems := row.DecodeProgram()
		for _, perr := range problems {
			imp.log.Warn("program problem", "program_id", ep.ID, "error", perr)
		}
		if !imp.dryRun {
			id, err := imp.db.UpsertProgram(ctx, row)
			if err != nil {
				return fmt.Errorf("storing program %d: %w", ep.ID, err)
			}
			p.ID = id
		}
		programs[p.ID] = p
		imp.stats.ProgramsImported++
	}

	// Phase 2: completion records
	var valid []models.CompletionRecord
	for _, r := range file.Completions {
		r.UserID = file.UserID
		r.Normalize()
		if err := r.Validate(); err != nil {
			imp.log.Warn("rejected completion", "exercise", r.ExerciseName, "week", r.Week, "day", r.Day, "error", err)
			imp.stats.CompletionsRejected++
			continue
		}
		valid = append(valid, r)
	}
	if imp.dryRun {
		imp.stats.CompletionsInserted += int64(len(valid))
	} else {
		inserted, err := imp.batchInsertCompletions(ctx, valid)
		if err != nil {
			return err
		}
		imp.stats.CompletionsInserted += inserted
		imp.stats.CompletionsDuplicate += int64(len(valid)) - inserted
	}

	// Phase 3: MetCon scores with heat-map fan-out
	for _, em := range file.MetCons {
		if err := imp.importMetCon(ctx, file.UserID, em, programs); err != nil {
			return err
		}
	}

	// Phase 4: Engine sessions
	for _, s := range file.Engine {
		s.UserID = file.UserID
		if s.DayNumber < 1 {
			imp.log.Warn("rejected engine session", "program_id", s.ProgramID, "day_number", s.DayNumber)
			continue
		}
		if !imp.dryRun {
			if err := imp.db.UpsertEngineSession(ctx, s); err != nil {
				return err
			}
		}
		imp.stats.EngineSessions++
	}
	return nil
}

// batchInsertCompletions inserts completion records in batches.
// 15 params per row, max 65535 params → ~4369 rows per batch. Use 4000.
func (imp *Importer) batchInsertCompletions(ctx context.Context, rows []models.CompletionRecord) (int64, error) {
	const batchSize = 4000
	var totalInserted int64

	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		inserted, err := imp.db.InsertCompletions(ctx, rows[i:end])
		if err != nil {
			return totalInserted, err
		}
		totalInserted += inserted
	}
	return totalInserted, nil
}

func (imp *Importer) importMetCon(ctx context.Context, userID int, em ExportMetCon, programs map[int64]*models.Program) error {
	mc := models.MetConCompletion{
		UserID:      userID,
		ProgramID:   em.ProgramID,
		Week:        em.Week,
		Day:         em.Day,
		MetConID:    em.MetConID,
		Score:       strings.TrimSpace(em.Score),
		CompletedAt: em.CompletedAt,
	}

	ref, err := imp.metconRef(ctx, userID, em, programs)
	if err != nil {
		return err
	}
	if ref != nil && mc.MetConID == 0 {
		mc.MetConID = ref.ID
	}

	var records []models.HeatMapRecord
	if ref != nil && mc.Score != "" {
		res, err := imp.rank.Rank(mc.Score, ref)
		if err != nil {
			imp.log.Warn("unrankable metcon score", "program_id", em.ProgramID, "week", em.Week, "day", em.Day,
				"score", mc.Score, "error", err)
		}
		if res != nil {
			pct := res.Percentile
			mc.Percentile = &pct
			mc.Tier = string(res.Tier)
			records = heatmap.RecordsFromMetCon(ref, float64(pct))
		}
	}
	if mc.Percentile == nil {
		imp.stats.MetConsUnranked++
	}

	if !imp.dryRun {
		if _, err := imp.db.CompleteMetCon(ctx, mc, records); err != nil {
			return err
		}
	}
	imp.stats.MetConsImported++
	imp.stats.HeatMapRecords += len(records)
	return nil
}

// metconRef finds the MetCon assigned to the export's program day, looking
// in the same export first and then in the database.
func (imp *Importer) metconRef(ctx context.Context, userID int, em ExportMetCon, programs map[int64]*models.Program) (*models.MetConRef, error) {
	p, ok := programs[em.ProgramID]
	if !ok && !imp.dryRun {
		row, err := imp.db.GetProgram(ctx, userID, em.ProgramID)
		if errors.Is(err, storage.ErrNotFound) {
			imp.log.Warn("metcon for unknown program", "program_id", em.ProgramID)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		p, _ = row.DecodeProgram()
		programs[em.ProgramID] = p
	}
	if p == nil {
		return nil, nil
	}
	d, ok := p.Day(em.Week, em.Day)
	if !ok {
		return nil, nil
	}
	ref := d.MetCon()
	if ref != nil && em.MetConID != 0 && ref.ID != em.MetConID {
		imp.log.Warn("metcon id mismatch", "program_id", em.ProgramID, "week", em.Week, "day", em.Day,
			"export", em.MetConID, "program", ref.ID)
		return nil, nil
	}
	return ref, nil
}
