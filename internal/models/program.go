package models

import "strings"

// Block names as they appear in generated programs.
const (
	BlockSkills        = "SKILLS"
	BlockTechnicalWork = "TECHNICAL WORK"
	BlockStrength      = "STRENGTH AND POWER"
	BlockAccessories   = "ACCESSORIES"
	BlockMetCons       = "METCONS"
	BlockEngine        = "ENGINE"
)

// DaysPerWeek is the number of training days scanned in every generated week.
const DaysPerWeek = 5

// BlockKind selects the completion semantics of a block.
type BlockKind int

const (
	BlockKindRegular BlockKind = iota
	BlockKindMetCon
	BlockKindEngine
)

func (k BlockKind) String() string {
	switch k {
	case BlockKindMetCon:
		return "metcon"
	case BlockKindEngine:
		return "engine"
	default:
		return "regular"
	}
}

// KindForName maps a block name to its kind. Matching is case-insensitive and
// ignores surrounding whitespace.
func KindForName(name string) BlockKind {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case BlockMetCons:
		return BlockKindMetCon
	case BlockEngine:
		return BlockKindEngine
	default:
		return BlockKindRegular
	}
}

// Block is one named category of work within a training day. It is one of
// RegularBlock, MetConBlock or EngineBlock.
type Block interface {
	BlockName() string
	Kind() BlockKind
	isBlock()
}

// RegularBlock holds individually completed exercise prescriptions.
type RegularBlock struct {
	Name      string                 `json:"block_name"`
	Exercises []ExercisePrescription `json:"exercises"`
}

func (b RegularBlock) BlockName() string { return b.Name }
func (b RegularBlock) Kind() BlockKind   { return BlockKindRegular }
func (RegularBlock) isBlock()            {}

// MetConBlock is a composite conditioning workout completed all at once.
// Ref is nil when the day names a METCONS block but no workout was assigned.
type MetConBlock struct {
	Ref *MetConRef `json:"metcon,omitempty"`
}

func (b MetConBlock) BlockName() string { return BlockMetCons }
func (b MetConBlock) Kind() BlockKind   { return BlockKindMetCon }
func (MetConBlock) isBlock()            {}

// TaskCount returns the number of tasks in the referenced workout, 0 without a reference.
func (b MetConBlock) TaskCount() int {
	if b.Ref == nil {
		return 0
	}
	return len(b.Ref.Tasks)
}

// EngineBlock is a single cardio-modality session.
type EngineBlock struct {
	Ref *EngineRef `json:"engine,omitempty"`
}

func (b EngineBlock) BlockName() string { return BlockEngine }
func (b EngineBlock) Kind() BlockKind   { return BlockKindEngine }
func (EngineBlock) isBlock()            {}

// ExercisePrescription is a prescribed movement within a regular block.
type ExercisePrescription struct {
	Name      string `json:"name"`
	Sets      int    `json:"sets"`
	Reps      string `json:"reps"`
	Weight    string `json:"weight,omitempty"`
	Notes     string `json:"notes,omitempty"`
	SetNumber int    `json:"set_number"`
}

// MetConRef identifies the conditioning workout assigned to a day.
type MetConRef struct {
	ID         int64        `json:"id"`
	WorkoutID  string       `json:"workout_id"`
	Format     ScoreFormat  `json:"format"`
	TimeDomain string       `json:"time_domain,omitempty"`
	Tasks      []MetConTask `json:"tasks"`
	Guidance   *Guidance    `json:"guidance,omitempty"`
}

// Guidance carries the raw benchmark scores published with a MetCon, in the
// workout's own notation ("7:30", "8+15").
type Guidance struct {
	MedianScore    string `json:"median_score"`
	ExcellentScore string `json:"excellent_score"`
}

// MetConTask is one movement inside a MetCon.
type MetConTask struct {
	Exercise string `json:"exercise"`
	Reps     int    `json:"reps"`
}

// EngineRef identifies the Engine session assigned to a day.
type EngineRef struct {
	DayNumber int `json:"day_number"`
}

// Day is one training day of a program week.
type Day struct {
	Week   int     `json:"week"`
	Day    int     `json:"day"`
	Name   string  `json:"day_name,omitempty"`
	Blocks []Block `json:"-"`
}

// Week groups the generated days of one program week.
type Week struct {
	Number int   `json:"week"`
	Days   []Day `json:"days"`
}

// Program is a read-only snapshot of an athlete's generated training plan.
type Program struct {
	ID             int64  `json:"id"`
	UserID         int    `json:"user_id"`
	WeeksGenerated []int  `json:"weeks_generated"`
	Weeks          []Week `json:"weeks"`
}

// Week returns the week with the given number.
func (p *Program) Week(number int) (*Week, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Weeks {
		if p.Weeks[i].Number == number {
			return &p.Weeks[i], true
		}
	}
	return nil, false
}

// Day returns the day with the given week and day number.
func (p *Program) Day(week, day int) (*Day, bool) {
	w, ok := p.Week(week)
	if !ok {
		return nil, false
	}
	return w.Day(day)
}

// Day returns the day with the given number within the week.
func (w *Week) Day(day int) (*Day, bool) {
	for i := range w.Days {
		if w.Days[i].Day == day {
			return &w.Days[i], true
		}
	}
	return nil, false
}

// MetCon returns the MetCon reference of the day, if any.
func (d *Day) MetCon() *MetConRef {
	for _, b := range d.Blocks {
		if mb, ok := b.(MetConBlock); ok && mb.Ref != nil {
			return mb.Ref
		}
	}
	return nil
}
