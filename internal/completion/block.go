package completion

import "github.com/claude/trainlog/internal/models"

// BlockResult is the completion state of one block.
type BlockResult struct {
	Name      string           `json:"block"`
	Kind      models.BlockKind `json:"-"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
}

// Applicable reports whether the block has any prescribed work. A 0/0 block
// is neither complete nor incomplete.
func (r BlockResult) Applicable() bool { return r.Total > 0 }

// Done reports whether every prescribed unit of an applicable block is complete.
func (r BlockResult) Done() bool { return r.Total > 0 && r.Completed >= r.Total }

// Units returns the block's contribution to day-level totals. MetCon and
// Engine blocks count as a single all-or-nothing unit regardless of how many
// tasks they contain.
func (r BlockResult) Units() (completed, total int) {
	if !r.Applicable() {
		return 0, 0
	}
	switch r.Kind {
	case models.BlockKindMetCon, models.BlockKindEngine:
		if r.Done() {
			return 1, 1
		}
		return 0, 1
	default:
		return r.Completed, r.Total
	}
}

// Percent returns the block completion percentage, 0 for a non-applicable block.
func (r BlockResult) Percent() int {
	return Percent(r.Completed, r.Total)
}

// EvaluateBlock computes the completed/total pair of a block on the given
// program day. It is a pure function of its inputs.
func EvaluateBlock(idx *Index, week, day int, b models.Block) BlockResult {
	if b == nil {
		return BlockResult{}
	}
	res := BlockResult{Name: b.BlockName(), Kind: b.Kind()}

	switch blk := b.(type) {
	case models.MetConBlock:
		res.Total = blk.TaskCount()
		if res.Total > 0 && idx.MetConDone(week, day, blk.Ref.ID) {
			res.Completed = res.Total
		}
	case models.EngineBlock:
		if blk.Ref == nil {
			break
		}
		res.Total = 1
		if idx.EngineDone(blk.Ref.DayNumber) {
			res.Completed = 1
		}
	case models.RegularBlock:
		res.Total = len(blk.Exercises)
		for _, ex := range blk.Exercises {
			if idx.HasExercise(week, day, blk.Name, ex) {
				res.Completed++
			}
		}
	}

	if res.Completed > res.Total {
		res.Completed = res.Total
	}
	return res
}

// EvaluateDay evaluates every block of a day in order.
func EvaluateDay(idx *Index, d *models.Day) []BlockResult {
	if d == nil {
		return nil
	}
	results := make([]BlockResult, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		results = append(results, EvaluateBlock(idx, d.Week, d.Day, b))
	}
	return results
}

// Percent returns round(100*completed/total) clamped to [0, 100], and 0 when
// total is 0.
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return (200*completed + total) / (2 * total)
}
