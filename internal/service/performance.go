package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/claude/trainlog/internal/cache"
	"github.com/claude/trainlog/internal/heatmap"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/percentile"
	"github.com/claude/trainlog/internal/telemetry"
)

// PercentileRequest ranks a raw score against a benchmark given in the
// workout's own notation.
type PercentileRequest struct {
	Score          string             `json:"score"`
	Format         models.ScoreFormat `json:"format"`
	MedianScore    string             `json:"median_score"`
	ExcellentScore string             `json:"excellent_score"`
	// RepsPerRound converts leftover AMRAP reps into a fraction of a round.
	RepsPerRound int `json:"reps_per_round,omitempty"`
}

// Percentile ranks a score without touching storage.
func (s *Service) Percentile(_ context.Context, req PercentileRequest) (*percentile.Result, error) {
	if strings.TrimSpace(req.MedianScore) == "" || strings.TrimSpace(req.ExcellentScore) == "" {
		return nil, &models.ValidationError{Field: "benchmark", Reason: "median_score and excellent_score are required"}
	}
	ref := &models.MetConRef{
		Format:   req.Format,
		Guidance: &models.Guidance{MedianScore: req.MedianScore, ExcellentScore: req.ExcellentScore},
	}
	if req.RepsPerRound > 0 {
		ref.Tasks = []models.MetConTask{{Reps: req.RepsPerRound}}
	}
	return s.rank.Rank(req.Score, ref)
}

// HeatMap builds the exercise × time-domain matrix of the athlete's ranked
// MetCon sessions. programID 0 spans all programs. A failed fetch yields an
// empty matrix.
func (s *Service) HeatMap(ctx context.Context, userID int, programID int64, filter string) (*heatmap.HeatMap, error) {
	f, err := heatmap.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	return cached(s, cache.HeatMapKey(userID, programID, string(f)), func() (*heatmap.HeatMap, error) {
		records := fetchOrEmpty(ctx, s, "heatmap", userID, programID, s.db.QueryHeatMapRecords)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hm := heatmap.Build(records, f)
		if hm.Skipped > 0 {
			s.obs.Inconsistent(telemetry.KindMalformedInput, "heat-map records skipped",
				"user_id", userID, "program_id", programID, "skipped", hm.Skipped)
		}
		return hm, nil
	})
}

// LogCompletion validates and stores one completion record, replacing any
// record with the same identity.
func (s *Service) LogCompletion(ctx context.Context, r models.CompletionRecord) (uuid.UUID, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return uuid.Nil, err
	}
	id, err := s.db.UpsertCompletion(ctx, r)
	if err != nil {
		return uuid.Nil, err
	}
	s.written(r.UserID, r.ProgramID, "exercise")
	return id, nil
}

// MetConRequest marks the MetCon of a program day complete with a score.
type MetConRequest struct {
	UserID    int    `json:"-"`
	ProgramID int64  `json:"program_id"`
	Week      int    `json:"week"`
	Day       int    `json:"day"`
	Score     string `json:"score"`
}

// MetConResult is the outcome of completing a MetCon.
type MetConResult struct {
	ID             uuid.UUID `json:"id"`
	MetConID       int64     `json:"metcon_id"`
	Percentile     *int      `json:"percentile"`
	Tier           string    `json:"performance_tier,omitempty"`
	HeatMapRecords int       `json:"heatmap_records"`
}

// CompleteMetCon marks the MetCon assigned to a program day done. A score is
// ranked against the workout's benchmark and fanned out into per-exercise
// heat-map records. A workout without a benchmark is stored unranked.
func (s *Service) CompleteMetCon(ctx context.Context, req MetConRequest) (*MetConResult, error) {
	row, err := s.db.GetProgram(ctx, req.UserID, req.ProgramID)
	if err != nil {
		return nil, err
	}
	p, _ := row.DecodeProgram()
	d, ok := p.Day(req.Week, req.Day)
	if !ok {
		return nil, &models.ValidationError{Field: "day", Value: fmt.Sprintf("%d/%d", req.Week, req.Day), Reason: "not in program"}
	}
	ref := d.MetCon()
	if ref == nil {
		return nil, &models.ValidationError{Field: "metcon", Value: fmt.Sprintf("%d/%d", req.Week, req.Day), Reason: "no MetCon assigned"}
	}

	mc := models.MetConCompletion{
		UserID:    req.UserID,
		ProgramID: req.ProgramID,
		Week:      req.Week,
		Day:       req.Day,
		MetConID:  ref.ID,
		Score:     strings.TrimSpace(req.Score),
	}
	var records []models.HeatMapRecord
	if mc.Score != "" {
		res, err := s.rank.Rank(mc.Score, ref)
		if err != nil {
			return nil, err
		}
		if res != nil {
			pct := res.Percentile
			mc.Percentile = &pct
			mc.Tier = string(res.Tier)
			records = heatmap.RecordsFromMetCon(ref, float64(pct))
			if s.metrics != nil {
				s.metrics.HistogramPercentile.Observe(float64(pct))
			}
		}
	}

	id, err := s.db.CompleteMetCon(ctx, mc, records)
	if err != nil {
		return nil, err
	}
	s.written(req.UserID, req.ProgramID, "metcon")
	return &MetConResult{
		ID:             id,
		MetConID:       ref.ID,
		Percentile:     mc.Percentile,
		Tier:           mc.Tier,
		HeatMapRecords: len(records),
	}, nil
}

// LogEngine records the state of an Engine session.
func (s *Service) LogEngine(ctx context.Context, es models.EngineSession) error {
	if es.DayNumber < 1 {
		return &models.ValidationError{Field: "program_day_number", Value: fmt.Sprint(es.DayNumber), Reason: "must be at least 1"}
	}
	if err := s.db.UpsertEngineSession(ctx, es); err != nil {
		return err
	}
	s.written(es.UserID, es.ProgramID, "engine")
	return nil
}

// written drops cached aggregates of the program and counts the write.
func (s *Service) written(userID int, programID int64, kind string) {
	if s.cache != nil {
		s.cache.Invalidate(userID, programID)
	}
	if s.metrics != nil {
		s.metrics.CounterCompletions.WithLabelValues(kind).Inc()
	}
}
