package progress

import (
	"github.com/claude/trainlog/internal/completion"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/telemetry"
)

// DayRef points at one program day.
type DayRef struct {
	Week int `json:"week"`
	Day  int `json:"day"`
}

// WeekProgress is the completion state of every day of one week.
type WeekProgress struct {
	Week     int           `json:"week"`
	Days     []DayProgress `json:"days"`
	Upcoming *DayRef       `json:"upcoming,omitempty"`
}

// ComputeWeek evaluates one week without reporting discrepancies.
func ComputeWeek(p *models.Program, week int, idx *completion.Index) WeekProgress {
	return quiet.Week(p, week, idx)
}

// Week evaluates days 1 through 5 of the given week. Days missing from the
// program are returned as empty days.
func (a *Aggregator) Week(p *models.Program, week int, idx *completion.Index) WeekProgress {
	wp := WeekProgress{Week: week}
	for n := 1; n <= models.DaysPerWeek; n++ {
		d, ok := p.Day(week, n)
		if !ok {
			if p != nil && generated(p, week) {
				a.obs.Inconsistent(telemetry.KindMissingDay, "day missing from program",
					"program_id", p.ID, "week", week, "day", n)
			}
			wp.Days = append(wp.Days, DayProgress{Week: week, Day: n})
			continue
		}
		wp.Days = append(wp.Days, a.Day(idx, d))
	}
	wp.Upcoming = Upcoming(wp.Days)
	return wp
}

// Upcoming selects the next workout of a week: the first day at exactly 0%,
// else the first day below 100%, else the first day. Nil for an empty week.
func Upcoming(days []DayProgress) *DayRef {
	if len(days) == 0 {
		return nil
	}
	pick := func(d DayProgress) *DayRef { return &DayRef{Week: d.Week, Day: d.Day} }
	for _, d := range days {
		if d.Percent == 0 {
			return pick(d)
		}
	}
	for _, d := range days {
		if d.Percent < 100 {
			return pick(d)
		}
	}
	return pick(days[0])
}

func generated(p *models.Program, week int) bool {
	for _, w := range p.WeeksGenerated {
		if w == week {
			return true
		}
	}
	return false
}
