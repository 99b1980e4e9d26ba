package models

// ScoreFormat is the scoring scheme of a workout.
type ScoreFormat string

const (
	FormatForTime       ScoreFormat = "For Time"
	FormatRoundsForTime ScoreFormat = "Rounds For Time"
	FormatAMRAP         ScoreFormat = "AMRAP"
	FormatScore         ScoreFormat = "Score"
)

// LowerIsBetter reports whether a smaller normalized score ranks higher.
func (f ScoreFormat) LowerIsBetter() bool {
	return f == FormatForTime || f == FormatRoundsForTime
}

// Benchmark is a workout's performance distribution: the median (50th
// percentile) and excellent (90th percentile) normalized scores.
type Benchmark struct {
	MedianScore    float64 `json:"median_score"`
	ExcellentScore float64 `json:"excellent_score"`
	HigherIsBetter bool    `json:"higher_is_better"`
}
