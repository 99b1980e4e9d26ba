package progress

import (
	"github.com/claude/trainlog/internal/completion"
	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/telemetry"
)

// DaysPerMonth is the number of consecutive program days in one "month" window.
const DaysPerMonth = 20

// ProgramProgress summarizes an athlete's position within a program.
type ProgramProgress struct {
	ProgramID            int64 `json:"program_id"`
	CurrentDay           int   `json:"current_day"`
	TotalDays            int   `json:"total_days"`
	CompletedDays        int   `json:"completed_days"`
	Month                int   `json:"month"`
	MonthProgressPercent int   `json:"month_progress_percent"`
	TasksAssigned        int   `json:"tasks_assigned"`
	TasksCompleted       int   `json:"tasks_completed"`
	CompletedBlocks      int   `json:"completed_blocks"`
}

// ComputeProgram evaluates a whole program without reporting discrepancies.
func ComputeProgram(p *models.Program, idx *completion.Index) ProgramProgress {
	return quiet.Program(p, idx)
}

// Program scans the generated weeks in order, days 1 through 5 each. Days
// without prescribed work are skipped: they are neither complete nor the
// current day. The current day is one past the completed days preceding the
// first incomplete day; when every day is complete it is the completed day
// count, capped at the total and at least 1.
func (a *Aggregator) Program(p *models.Program, idx *completion.Index) ProgramProgress {
	var pp ProgramProgress
	if p == nil {
		pp.CurrentDay = 1
		pp.Month = 1
		return pp
	}
	pp.ProgramID = p.ID

	found := false
	for _, week := range p.WeeksGenerated {
		for n := 1; n <= models.DaysPerWeek; n++ {
			d, ok := p.Day(week, n)
			if !ok {
				a.obs.Inconsistent(telemetry.KindMissingDay, "day missing from program",
					"program_id", p.ID, "week", week, "day", n)
				continue
			}
			pp.TotalDays++

			dp := a.Day(idx, d)
			if !dp.Applicable() {
				continue
			}
			pp.TasksAssigned += dp.Total
			pp.TasksCompleted += dp.Completed
			for _, b := range dp.Blocks {
				if b.Done() {
					pp.CompletedBlocks++
				}
			}

			if dp.Done() {
				if !found {
					pp.CompletedDays++
				}
				continue
			}
			if !found {
				found = true
				pp.CurrentDay = pp.CompletedDays + 1
			}
		}
	}

	if !found {
		pp.CurrentDay = max(1, min(pp.CompletedDays, pp.TotalDays))
	}
	pp.Month, pp.MonthProgressPercent = monthWindow(pp.CurrentDay, pp.TotalDays)
	return pp
}

// monthWindow returns the 1-based month containing current and the share of
// that month's days up to and including current.
func monthWindow(current, totalDays int) (month, percent int) {
	month = (current + DaysPerMonth - 1) / DaysPerMonth
	if month < 1 {
		month = 1
	}
	start := (month-1)*DaysPerMonth + 1
	end := min(month*DaysPerMonth, totalDays)
	monthDays := end - start + 1
	if monthDays <= 0 {
		return month, 0
	}
	days := max(0, min(current-start+1, monthDays))
	return month, completion.Percent(days, monthDays)
}
