package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProgramPayload is the loosely-typed program document produced by the
// program generator and stored alongside the program row.
type ProgramPayload struct {
	Weeks []WeekPayload `json:"weeks"`
}

// WeekPayload is one week of the program document. Days stay raw so that a
// single malformed day does not reject the whole week.
type WeekPayload struct {
	Week int               `json:"week"`
	Days []json.RawMessage `json:"days"`
}

// DayPayload is one day of the program document.
type DayPayload struct {
	Day        int            `json:"day"`
	DayName    string         `json:"dayName"`
	Blocks     []BlockPayload `json:"blocks"`
	MetConData *MetConPayload `json:"metconData"`
	EngineData *EnginePayload `json:"engineData"`
}

// BlockPayload is one block of a day in the program document.
type BlockPayload struct {
	BlockName string            `json:"blockName"`
	Exercises []ExercisePayload `json:"exercises"`
}

// ExercisePayload is one prescribed exercise. Sets and reps arrive as either
// numbers or strings.
type ExercisePayload struct {
	Name      string     `json:"name"`
	Sets      FlexString `json:"sets"`
	Reps      FlexString `json:"reps"`
	Weight    FlexString `json:"weight"`
	Notes     string     `json:"notes"`
	SetNumber *int       `json:"setNumber"`
}

// MetConPayload is the MetCon assigned to a day.
type MetConPayload struct {
	ID                 int64               `json:"id"`
	WorkoutID          string              `json:"workoutId"`
	WorkoutFormat      string              `json:"workoutFormat"`
	TimeRange          string              `json:"timeRange"`
	Tasks              []MetConTaskPayload `json:"tasks"`
	PercentileGuidance *struct {
		MedianScore    FlexString `json:"medianScore"`
		ExcellentScore FlexString `json:"excellentScore"`
	} `json:"percentileGuidance"`
}

// MetConTaskPayload is one task of a MetCon.
type MetConTaskPayload struct {
	Exercise string     `json:"exercise"`
	Reps     FlexString `json:"reps"`
}

// EnginePayload is the Engine session assigned to a day.
type EnginePayload struct {
	DayNumber int `json:"dayNumber"`
}

// FlexString accepts a JSON string or number and keeps its text form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// Int parses the leading integer of the value ("3", "3 sets"), 0 when absent.
func (f FlexString) Int() int {
	s := strings.TrimSpace(string(f))
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// DecodeProgram validates a program document once at the boundary and turns
// it into typed weeks, days and blocks. Problems are isolated to the smallest
// unit possible and returned alongside the partial program: a malformed day
// becomes a day without blocks, an exercise with an unusable set annotation is
// dropped from its block.
func DecodeProgram(id int64, userID int, weeksGenerated []int, data []byte) (*Program, []error) {
	p := &Program{ID: id, UserID: userID, WeeksGenerated: weeksGenerated}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}

	var payload ProgramPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return p, []error{fmt.Errorf("decoding program %d: %w", id, err)}
	}

	var problems []error
	for _, wp := range payload.Weeks {
		w := Week{Number: wp.Week}
		for i, raw := range wp.Days {
			var dp DayPayload
			if err := json.Unmarshal(raw, &dp); err != nil {
				problems = append(problems, fmt.Errorf("week %d day index %d: %w", wp.Week, i, err))
				if n := probeDayNumber(raw); n > 0 {
					w.Days = append(w.Days, Day{Week: wp.Week, Day: n})
				}
				continue
			}
			day, errs := decodeDay(wp.Week, &dp)
			problems = append(problems, errs...)
			w.Days = append(w.Days, day)
		}
		p.Weeks = append(p.Weeks, w)
	}
	return p, problems
}

// probeDayNumber recovers the day number from a day that failed to decode.
func probeDayNumber(raw json.RawMessage) int {
	var probe struct {
		Day int `json:"day"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0
	}
	return probe.Day
}

func decodeDay(week int, dp *DayPayload) (Day, []error) {
	day := Day{Week: week, Day: dp.Day, Name: dp.DayName}
	var problems []error

	metcon := decodeMetCon(dp.MetConData)
	var engine *EngineRef
	if dp.EngineData != nil {
		engine = &EngineRef{DayNumber: dp.EngineData.DayNumber}
	}

	var haveMetCon, haveEngine bool
	for _, bp := range dp.Blocks {
		switch KindForName(bp.BlockName) {
		case BlockKindMetCon:
			if haveMetCon {
				continue
			}
			haveMetCon = true
			day.Blocks = append(day.Blocks, MetConBlock{Ref: metcon})
		case BlockKindEngine:
			if haveEngine {
				continue
			}
			haveEngine = true
			if engine == nil {
				problems = append(problems, fmt.Errorf("week %d day %d: %s block without engine data", week, dp.Day, bp.BlockName))
			}
			day.Blocks = append(day.Blocks, EngineBlock{Ref: engine})
		default:
			block := RegularBlock{Name: strings.TrimSpace(bp.BlockName)}
			for _, ep := range bp.Exercises {
				ex, err := decodeExercise(ep)
				if err != nil {
					problems = append(problems, fmt.Errorf("week %d day %d block %s exercise %q: %w",
						week, dp.Day, block.Name, ep.Name, err))
					continue
				}
				block.Exercises = append(block.Exercises, ex)
			}
			day.Blocks = append(day.Blocks, block)
		}
	}

	// Workouts assigned to the day count even when the block list omits them.
	if metcon != nil && !haveMetCon {
		day.Blocks = append(day.Blocks, MetConBlock{Ref: metcon})
	}
	if engine != nil && !haveEngine {
		day.Blocks = append(day.Blocks, EngineBlock{Ref: engine})
	}
	return day, problems
}

func decodeExercise(ep ExercisePayload) (ExercisePrescription, error) {
	ex := ExercisePrescription{
		Name:   strings.TrimSpace(ep.Name),
		Sets:   ep.Sets.Int(),
		Reps:   string(ep.Reps),
		Weight: string(ep.Weight),
		Notes:  ep.Notes,
	}
	if ex.Name == "" {
		return ex, &ValidationError{Field: "name", Reason: "required"}
	}
	if ep.SetNumber != nil {
		if *ep.SetNumber < 1 {
			return ex, &ValidationError{Field: "set_number", Value: strconv.Itoa(*ep.SetNumber), Reason: "must be at least 1"}
		}
		ex.SetNumber = *ep.SetNumber
		return ex, nil
	}
	n, err := ParseSetNumber(ep.Notes)
	if err != nil {
		return ex, err
	}
	ex.SetNumber = n
	return ex, nil
}

func decodeMetCon(mp *MetConPayload) *MetConRef {
	if mp == nil {
		return nil
	}
	ref := &MetConRef{
		ID:         mp.ID,
		WorkoutID:  mp.WorkoutID,
		Format:     ScoreFormat(strings.TrimSpace(mp.WorkoutFormat)),
		TimeDomain: strings.TrimSpace(mp.TimeRange),
	}
	for _, t := range mp.Tasks {
		ref.Tasks = append(ref.Tasks, MetConTask{Exercise: strings.TrimSpace(t.Exercise), Reps: t.Reps.Int()})
	}
	if g := mp.PercentileGuidance; g != nil && (g.MedianScore != "" || g.ExcellentScore != "") {
		ref.Guidance = &Guidance{MedianScore: string(g.MedianScore), ExcellentScore: string(g.ExcellentScore)}
	}
	return ref
}
