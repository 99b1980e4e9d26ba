package models

import (
	"regexp"
	"strconv"
)

// setAnnotationRe matches "Set 2" inside free-text notes, e.g. "Intermediate - Set 2".
var setAnnotationRe = regexp.MustCompile(`(?i)\bSet\s+(-?\d+)`)

// ParseSetNumber extracts the prescribed set number from a notes annotation.
// Notes without an annotation default to set 1. An annotation naming a set
// below 1 is a validation error.
func ParseSetNumber(notes string) (int, error) {
	m := setAnnotationRe.FindStringSubmatch(notes)
	if m == nil {
		return 1, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &ValidationError{Field: "set_number", Value: m[1], Reason: err.Error()}
	}
	if n < 1 {
		return 0, &ValidationError{Field: "set_number", Value: m[1], Reason: "must be at least 1"}
	}
	return n, nil
}
