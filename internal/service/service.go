// Package service answers progress, percentile and heat-map queries for one
// athlete at a time. It fetches snapshots from storage, runs the pure
// aggregation packages over them and caches the results.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/claude/trainlog/internal/cache"
	"github.com/claude/trainlog/internal/completion"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/progress"
	"github.com/claude/trainlog/internal/storage"
	"github.com/claude/trainlog/internal/telemetry"
)

// Store is the storage the service reads snapshots from and writes completions to.
type Store interface {
	GetProgram(ctx context.Context, userID int, programID int64) (*storage.ProgramRow, error)
	ListPrograms(ctx context.Context, userID int) ([]storage.ProgramSummary, error)
	QueryCompletions(ctx context.Context, userID int, programID int64) ([]models.CompletionRecord, error)
	QueryMetConCompletions(ctx context.Context, userID int, programID int64) ([]models.MetConCompletion, error)
	QueryEngineSessions(ctx context.Context, userID int, programID int64) ([]models.EngineSession, error)
	QueryHeatMapRecords(ctx context.Context, userID int, programID int64) ([]models.HeatMapRecord, error)
	UpsertCompletion(ctx context.Context, r models.CompletionRecord) (uuid.UUID, error)
	CompleteMetCon(ctx context.Context, mc models.MetConCompletion, records []models.HeatMapRecord) (uuid.UUID, error)
	UpsertEngineSession(ctx context.Context, s models.EngineSession) error
}

// Service holds dependencies for the query and write operations.
type Service struct {
	db      Store
	rank    *percentile.Engine
	cache   *cache.Cache
	metrics *telemetry.Manager
	obs     telemetry.Observer
	agg     *progress.Aggregator
	log     *slog.Logger
}

// New creates a Service. cache and metrics may be nil.
func New(db Store, rank *percentile.Engine, c *cache.Cache, metrics *telemetry.Manager, log *slog.Logger) *Service {
	if rank == nil {
		rank = percentile.New(percentile.DefaultConfig())
	}
	obs := telemetry.NewLogObserver(log, metrics)
	return &Service{
		db:      db,
		rank:    rank,
		cache:   c,
		metrics: metrics,
		obs:     obs,
		agg:     progress.NewAggregator(obs),
		log:     log,
	}
}

// snapshot is everything known about one program of one athlete at a point in time.
type snapshot struct {
	program *models.Program
	index   *completion.Index
}

// load fetches the program and its completion snapshots concurrently. A
// program that does not exist yields a nil program. A failed completion
// fetch is reported and replaced by an empty collection.
func (s *Service) load(ctx context.Context, userID int, programID int64) (*snapshot, error) {
	var (
		row     *storage.ProgramRow
		records []models.CompletionRecord
		metcons []models.MetConCompletion
		engine  []models.EngineSession
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.db.GetProgram(gctx, userID, programID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		row = r
		return nil
	})
	g.Go(func() error {
		records = fetchOrEmpty(gctx, s, "completions", userID, programID, s.db.QueryCompletions)
		return nil
	})
	g.Go(func() error {
		metcons = fetchOrEmpty(gctx, s, "metcons", userID, programID, s.db.QueryMetConCompletions)
		return nil
	})
	g.Go(func() error {
		engine = fetchOrEmpty(gctx, s, "engine", userID, programID, s.db.QueryEngineSessions)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading program %d: %w", programID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &snapshot{index: completion.NewIndex(programID, userID, records, metcons, engine)}
	if row != nil {
		p, problems := row.DecodeProgram()
		for _, perr := range problems {
			s.obs.Inconsistent(telemetry.KindMalformedInput, "program data rejected",
				"program_id", programID, "error", perr)
		}
		snap.program = p
	}
	return snap, nil
}

func fetchOrEmpty[T any](ctx context.Context, s *Service, what string, userID int, programID int64,
	fetch func(context.Context, int, int64) ([]T, error)) []T {
	rows, err := fetch(ctx, userID, programID)
	if err != nil {
		if ctx.Err() == nil {
			s.obs.Inconsistent(telemetry.KindFetchFailed, "fetch failed, using empty collection",
				"what", what, "user_id", userID, "program_id", programID, "error", err)
		}
		return nil
	}
	return rows
}

// cached returns the cached value of k, or computes, caches and returns it.
// The entry is resolved before compute runs, so a write landing during
// compute leaves the result under the superseded generation.
func cached[T any](s *Service, k cache.Key, compute func() (T, error)) (T, error) {
	var v T
	if s.cache == nil {
		return compute()
	}
	e := s.cache.Resolve(k)
	if s.cache.Get(e, &v) {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(e, v); err != nil {
		s.log.Warn("cache set failed", "kind", k.Kind, "error", err)
	}
	return v, nil
}

// Programs lists the athlete's programs.
func (s *Service) Programs(ctx context.Context, userID int) ([]storage.ProgramSummary, error) {
	return s.db.ListPrograms(ctx, userID)
}

// ProgramProgress returns the athlete's position within a program. An
// unknown program yields empty progress.
func (s *Service) ProgramProgress(ctx context.Context, userID int, programID int64) (progress.ProgramProgress, error) {
	return cached(s, cache.ProgressKey(userID, programID, "program"), func() (progress.ProgramProgress, error) {
		snap, err := s.load(ctx, userID, programID)
		if err != nil {
			return progress.ProgramProgress{}, err
		}
		pp := s.agg.Program(snap.program, snap.index)
		pp.ProgramID = programID
		return pp, nil
	})
}

// WeekProgress returns the completion of days 1 through 5 of a week and the
// upcoming workout.
func (s *Service) WeekProgress(ctx context.Context, userID int, programID int64, week int) (progress.WeekProgress, error) {
	if week < 1 {
		return progress.WeekProgress{}, &models.ValidationError{Field: "week", Value: fmt.Sprint(week), Reason: "must be at least 1"}
	}
	return cached(s, cache.ProgressKey(userID, programID, fmt.Sprintf("w%d", week)), func() (progress.WeekProgress, error) {
		snap, err := s.load(ctx, userID, programID)
		if err != nil {
			return progress.WeekProgress{}, err
		}
		return s.agg.Week(snap.program, week, snap.index), nil
	})
}

// DayProgress returns the per-block completion of one day. A day missing
// from the program is returned empty.
func (s *Service) DayProgress(ctx context.Context, userID int, programID int64, week, day int) (progress.DayProgress, error) {
	if week < 1 {
		return progress.DayProgress{}, &models.ValidationError{Field: "week", Value: fmt.Sprint(week), Reason: "must be at least 1"}
	}
	if day < 1 || day > models.DaysPerWeek {
		return progress.DayProgress{}, &models.ValidationError{Field: "day", Value: fmt.Sprint(day), Reason: "must be between 1 and 5"}
	}
	return cached(s, cache.ProgressKey(userID, programID, fmt.Sprintf("w%dd%d", week, day)), func() (progress.DayProgress, error) {
		snap, err := s.load(ctx, userID, programID)
		if err != nil {
			return progress.DayProgress{}, err
		}
		d, ok := snap.program.Day(week, day)
		if !ok {
			return progress.DayProgress{Week: week, Day: day}, nil
		}
		return s.agg.Day(snap.index, d), nil
	})
}
