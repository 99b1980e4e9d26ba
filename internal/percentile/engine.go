// Package percentile ranks a logged workout score against the workout's
// benchmark distribution.
package percentile

import (
	"fmt"
	"math"

	"github.com/claude/trainlog/internal/models"
)

// Anchor percentiles of a benchmark distribution.
const (
	MedianPercentile    = 50
	ExcellentPercentile = 90

	minPercentile = 1
	maxPercentile = 99
)

// Config locates the lowest interpolation anchor.
type Config struct {
	// FloorPercentile is the percentile assigned at the floor anchor.
	FloorPercentile float64
	// FloorSpan places the floor anchor FloorSpan times the
	// median-to-excellent distance below the median.
	FloorSpan float64
}

// DefaultConfig places the floor at the 1st percentile, two median-to-excellent
// spans below the median.
func DefaultConfig() Config {
	return Config{FloorPercentile: 1, FloorSpan: 2}
}

// Result is a ranked score.
type Result struct {
	Percentile int  `json:"percentile"`
	Tier       Tier `json:"performance_tier"`
}

// Engine computes percentiles. It is stateless and safe for concurrent use.
type Engine struct {
	cfg Config
}

// New returns an Engine. Out-of-range config values fall back to defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.FloorPercentile < minPercentile || cfg.FloorPercentile >= MedianPercentile {
		cfg.FloorPercentile = def.FloorPercentile
	}
	if cfg.FloorSpan <= 0 {
		cfg.FloorSpan = def.FloorSpan
	}
	return &Engine{cfg: cfg}
}

// Compute ranks a normalized score. A nil benchmark yields a nil result and
// no error: without a distribution there is nothing to rank against.
//
// Scores are mapped linearly between three anchors (floor, median at 50,
// excellent at 90). Above the excellent anchor the median-to-excellent slope
// continues, and the result is clamped to [1, 99].
func (e *Engine) Compute(score float64, b *models.Benchmark) (*Result, error) {
	if b == nil {
		return nil, nil
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, &models.ValidationError{Field: "score", Value: fmt.Sprint(score), Reason: "not a finite number"}
	}

	s, median, excellent := score, b.MedianScore, b.ExcellentScore
	if !b.HigherIsBetter {
		s, median, excellent = -s, -median, -excellent
	}

	var p float64
	switch {
	case excellent == median:
		p = MedianPercentile
	case excellent < median:
		return nil, &models.ValidationError{
			Field:  "excellent_score",
			Value:  fmt.Sprint(b.ExcellentScore),
			Reason: "must rank above the median score",
		}
	case s >= median:
		p = MedianPercentile + (s-median)/(excellent-median)*(ExcellentPercentile-MedianPercentile)
	default:
		floor := median - e.cfg.FloorSpan*(excellent-median)
		p = e.cfg.FloorPercentile + (s-floor)/(median-floor)*(MedianPercentile-e.cfg.FloorPercentile)
	}

	pct := int(math.Round(p))
	pct = max(minPercentile, min(maxPercentile, pct))
	return &Result{Percentile: pct, Tier: TierFor(pct)}, nil
}

// Rank parses a raw score for the workout and ranks it against the workout's
// published benchmark. A malformed score is an error even when the workout
// has no benchmark.
func (e *Engine) Rank(raw string, ref *models.MetConRef) (*Result, error) {
	score, err := ParseWorkoutScore(raw, ref)
	if err != nil {
		return nil, err
	}
	b, err := BenchmarkFor(ref)
	if err != nil {
		return nil, err
	}
	return e.Compute(score, b)
}

// BenchmarkFor parses the benchmark published with a MetCon. It returns nil
// when the workout carries no complete guidance.
func BenchmarkFor(ref *models.MetConRef) (*models.Benchmark, error) {
	if ref == nil || ref.Guidance == nil || ref.Guidance.MedianScore == "" || ref.Guidance.ExcellentScore == "" {
		return nil, nil
	}
	rpr := RepsPerRound(ref)
	median, err := parseScore(ref.Guidance.MedianScore, ref.Format, rpr)
	if err != nil {
		return nil, fmt.Errorf("median score: %w", err)
	}
	excellent, err := parseScore(ref.Guidance.ExcellentScore, ref.Format, rpr)
	if err != nil {
		return nil, fmt.Errorf("excellent score: %w", err)
	}
	return &models.Benchmark{
		MedianScore:    median,
		ExcellentScore: excellent,
		HigherIsBetter: !ref.Format.LowerIsBetter(),
	}, nil
}
