package completion

import (
	"sort"

	"github.com/claude/trainlog/internal/models"
)

type dayKey struct {
	week, day int
}

type metconKey struct {
	week, day int
	metconID  int64
}

// Index holds every completion known for one user and program, ready for
// constant-time lookups per day. An Index is immutable once built.
type Index struct {
	programID int64
	userID    int
	records   map[dayKey]map[string]struct{}
	metcons   map[metconKey]struct{}
	engine    map[int]struct{}
}

// NewIndex builds an Index from fetched snapshots. Entries belonging to other
// programs or users are ignored. A nil collection is treated as empty.
// Records sharing an identity collapse into one.
func NewIndex(programID int64, userID int, records []models.CompletionRecord, metcons []models.MetConCompletion, engine []models.EngineSession) *Index {
	idx := &Index{
		programID: programID,
		userID:    userID,
		records:   make(map[dayKey]map[string]struct{}),
		metcons:   make(map[metconKey]struct{}),
		engine:    make(map[int]struct{}),
	}
	for i := range records {
		r := &records[i]
		if r.ProgramID != programID || r.UserID != userID || r.ExerciseName == "" || r.SetNumber < 0 {
			continue
		}
		k := dayKey{r.Week, r.Day}
		if idx.records[k] == nil {
			idx.records[k] = make(map[string]struct{})
		}
		idx.records[k][RecordKey(r)] = struct{}{}
	}
	for _, m := range metcons {
		if m.ProgramID != programID || m.UserID != userID {
			continue
		}
		idx.metcons[metconKey{m.Week, m.Day, m.MetConID}] = struct{}{}
	}
	for _, e := range engine {
		if e.ProgramID != programID || e.UserID != userID || !e.Completed || e.DayNumber <= 0 {
			continue
		}
		idx.engine[e.DayNumber] = struct{}{}
	}
	return idx
}

// ProgramID returns the program the index was built for.
func (idx *Index) ProgramID() int64 { return idx.programID }

// HasExercise reports whether a prescription has a matching record on the
// given day. The block-qualified key is authoritative; the legacy key is only
// consulted when no qualified record exists.
func (idx *Index) HasExercise(week, day int, block string, ex models.ExercisePrescription) bool {
	if idx == nil {
		return false
	}
	keys := idx.records[dayKey{week, day}]
	if len(keys) == 0 {
		return false
	}
	qualified, legacy := PrescriptionKeys(block, ex)
	if _, ok := keys[qualified]; ok {
		return true
	}
	_, ok := keys[legacy]
	return ok
}

// MetConDone reports whether the MetCon was explicitly marked complete.
func (idx *Index) MetConDone(week, day int, metconID int64) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.metcons[metconKey{week, day, metconID}]
	return ok
}

// EngineDone reports whether the Engine session for the engine day number was completed.
func (idx *Index) EngineDone(dayNumber int) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.engine[dayNumber]
	return ok
}

// Orphans returns the record identities logged for a day that match no
// prescription of that day. They never count toward completion.
func (idx *Index) Orphans(d *models.Day) []string {
	if idx == nil || d == nil {
		return nil
	}
	keys := idx.records[dayKey{d.Week, d.Day}]
	if len(keys) == 0 {
		return nil
	}
	known := make(map[string]struct{})
	for _, b := range d.Blocks {
		rb, ok := b.(models.RegularBlock)
		if !ok {
			continue
		}
		for _, ex := range rb.Exercises {
			q, l := PrescriptionKeys(rb.Name, ex)
			known[q] = struct{}{}
			known[l] = struct{}{}
		}
	}
	var orphans []string
	for k := range keys {
		if _, ok := known[k]; !ok {
			orphans = append(orphans, k)
		}
	}
	sort.Strings(orphans)
	return orphans
}
