// Package progress rolls block completion up into day, week and program
// progress. Aggregation never fails: missing or inconsistent data degrades
// the result and is reported to the observer.
package progress

import (
	"github.com/claude/trainlog/internal/completion"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/telemetry"
)

// DayProgress is the completion state of one training day.
type DayProgress struct {
	Week      int                      `json:"week"`
	Day       int                      `json:"day"`
	Name      string                   `json:"day_name,omitempty"`
	Completed int                      `json:"completed"`
	Total     int                      `json:"total"`
	Percent   int                      `json:"percent"`
	Blocks    []completion.BlockResult `json:"blocks"`
}

// Applicable reports whether the day has any prescribed work.
func (d DayProgress) Applicable() bool { return d.Total > 0 }

// Done reports whether every prescribed unit of an applicable day is complete.
func (d DayProgress) Done() bool { return d.Total > 0 && d.Completed >= d.Total }

// Aggregator computes progress and reports discrepancies to an observer.
type Aggregator struct {
	obs telemetry.Observer
}

// NewAggregator returns an Aggregator. A nil observer discards reports.
func NewAggregator(obs telemetry.Observer) *Aggregator {
	return &Aggregator{obs: telemetry.OrNop(obs)}
}

var quiet = NewAggregator(nil)

// ComputeDay evaluates a day without reporting discrepancies.
func ComputeDay(idx *completion.Index, d *models.Day) DayProgress {
	return quiet.Day(idx, d)
}

// DayPercent returns round(100 * completed / total) over the applicable
// blocks, with MetCon and Engine blocks counting as one unit each.
func DayPercent(results []completion.BlockResult) int {
	c, t := sumUnits(results)
	return completion.Percent(c, t)
}

func sumUnits(results []completion.BlockResult) (completed, total int) {
	for _, r := range results {
		c, t := r.Units()
		completed += c
		total += t
	}
	return completed, total
}

// Day evaluates every block of d. A nil day yields an empty, non-applicable result.
func (a *Aggregator) Day(idx *completion.Index, d *models.Day) DayProgress {
	if d == nil {
		return DayProgress{}
	}
	results := completion.EvaluateDay(idx, d)
	c, t := sumUnits(results)
	dp := DayProgress{
		Week:      d.Week,
		Day:       d.Day,
		Name:      d.Name,
		Completed: c,
		Total:     t,
		Percent:   completion.Percent(c, t),
		Blocks:    results,
	}

	for _, key := range idx.Orphans(d) {
		a.obs.Inconsistent(telemetry.KindOrphanCompletion, "completion matches no prescription",
			"program_id", idx.ProgramID(), "week", d.Week, "day", d.Day, "key", key)
	}
	return dp
}
