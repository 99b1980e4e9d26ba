package percentile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/claude/trainlog/internal/models"
)

var (
	// amrapRe matches "8+15", "8 + 15", "8 rounds + 15" and "8 rounds plus 15".
	amrapRe = regexp.MustCompile(`^(\d+)\s*(?:rounds?\s*)?(?:\+|plus)\s*(\d+)(?:\s*reps?)?$`)
	// roundsRe matches a bare round count such as "10" or "10 rounds".
	roundsRe = regexp.MustCompile(`^(\d+)(?:\s*rounds?)?$`)
)

// amrapRepsScale separates rounds from leftover reps when the reps per round
// of the workout are unknown.
const amrapRepsScale = 1000

// ParseScore normalizes a user-entered score for the given format: elapsed
// seconds for time formats, rounds plus a fraction of a round for AMRAP, and
// the plain number otherwise.
func ParseScore(raw string, f models.ScoreFormat) (float64, error) {
	return parseScore(raw, f, 0)
}

// ParseWorkoutScore is ParseScore with AMRAP leftover reps expressed as a
// fraction of the workout's reps per round.
func ParseWorkoutScore(raw string, ref *models.MetConRef) (float64, error) {
	if ref == nil {
		return ParseScore(raw, "")
	}
	return parseScore(raw, ref.Format, RepsPerRound(ref))
}

// RepsPerRound returns the total reps of one round of the workout.
func RepsPerRound(ref *models.MetConRef) int {
	if ref == nil {
		return 0
	}
	n := 0
	for _, t := range ref.Tasks {
		if t.Reps > 0 {
			n += t.Reps
		}
	}
	return n
}

func parseScore(raw string, f models.ScoreFormat, repsPerRound int) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, &models.ValidationError{Field: "score", Value: raw, Reason: "required"}
	}

	if strings.Contains(s, ":") {
		secs, ok := parseClock(s)
		if !ok {
			return 0, &models.ValidationError{Field: "score", Value: raw, Reason: "expected MM:SS or H:MM:SS"}
		}
		return secs, nil
	}

	if f == models.FormatAMRAP {
		if m := amrapRe.FindStringSubmatch(s); m != nil {
			rounds, err1 := strconv.Atoi(m[1])
			reps, err2 := strconv.Atoi(m[2])
			if err1 != nil || err2 != nil {
				return 0, &models.ValidationError{Field: "score", Value: raw, Reason: "rounds or reps out of range"}
			}
			return amrap(rounds, reps, repsPerRound), nil
		}
		if m := roundsRe.FindStringSubmatch(s); m != nil {
			rounds, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, &models.ValidationError{Field: "score", Value: raw, Reason: "rounds out of range"}
			}
			return float64(rounds), nil
		}
		return 0, &models.ValidationError{Field: "score", Value: raw, Reason: "expected rounds+reps"}
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, &models.ValidationError{Field: "score", Value: raw, Reason: "not a number"}
	}
	return v, nil
}

func amrap(rounds, reps, repsPerRound int) float64 {
	if repsPerRound > 0 {
		return float64(rounds) + float64(reps)/float64(repsPerRound)
	}
	return float64(rounds) + float64(reps)/amrapRepsScale
}

// parseClock converts "MM:SS" or "H:MM:SS" to seconds.
func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		// Only the leading field may exceed 59.
		if i > 0 && n > 59 {
			return 0, false
		}
		total = total*60 + n
	}
	return float64(total), true
}
