package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompletionRecord is one logged instance of performed work for a prescription.
// Block is empty for records written before completions were block-qualified.
type CompletionRecord struct {
	ID            uuid.UUID `json:"id"`
	UserID        int       `json:"user_id"`
	ProgramID     int64     `json:"program_id"`
	Week          int       `json:"week"`
	Day           int       `json:"day"`
	Block         string    `json:"block"`
	ExerciseName  string    `json:"exercise_name"`
	SetNumber     int       `json:"set_number"`
	SetsCompleted *int      `json:"sets_completed,omitempty"`
	RepsCompleted *string   `json:"reps_completed,omitempty"`
	WeightUsed    *float64  `json:"weight_used,omitempty"`
	RPE           *int      `json:"rpe,omitempty"`
	QualityGrade  *string   `json:"quality_grade,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	LoggedAt      time.Time `json:"logged_at"`
}

// Normalize trims the identifying names and maps an omitted set number to
// the first set, so both forms share one stored identity.
func (r *CompletionRecord) Normalize() {
	r.Block = strings.TrimSpace(r.Block)
	r.ExerciseName = strings.TrimSpace(r.ExerciseName)
	if r.SetNumber == 0 {
		r.SetNumber = 1
	}
}

// Validate checks the fields that identify the prescription a record belongs to.
func (r *CompletionRecord) Validate() error {
	if r.ExerciseName == "" {
		return &ValidationError{Field: "exercise_name", Reason: "required"}
	}
	if r.SetNumber < 0 {
		return &ValidationError{Field: "set_number", Value: itoa(r.SetNumber), Reason: "must not be negative"}
	}
	if r.Week < 1 {
		return &ValidationError{Field: "week", Value: itoa(r.Week), Reason: "must be at least 1"}
	}
	if r.Day < 1 || r.Day > DaysPerWeek {
		return &ValidationError{Field: "day", Value: itoa(r.Day), Reason: "must be between 1 and 5"}
	}
	if r.RPE != nil && (*r.RPE < 1 || *r.RPE > 10) {
		return &ValidationError{Field: "rpe", Value: itoa(*r.RPE), Reason: "must be between 1 and 10"}
	}
	return nil
}

// MetConCompletion marks an entire MetCon as done for a program day.
// Percentile and Tier are set when the logged score could be ranked.
type MetConCompletion struct {
	ID          uuid.UUID `json:"id"`
	UserID      int       `json:"user_id"`
	ProgramID   int64     `json:"program_id"`
	Week        int       `json:"week"`
	Day         int       `json:"day"`
	MetConID    int64     `json:"metcon_id"`
	Score       string    `json:"score,omitempty"`
	Percentile  *int      `json:"percentile,omitempty"`
	Tier        string    `json:"performance_tier,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// EngineSession is a completed Engine workout keyed by its engine day number.
type EngineSession struct {
	UserID    int   `json:"user_id"`
	ProgramID int64 `json:"program_id"`
	DayNumber int   `json:"program_day_number"`
	Completed bool  `json:"completed"`
}
