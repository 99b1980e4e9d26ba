package models

import (
	"fmt"
	"strconv"
)

// ValidationError reports a malformed individual input value. It identifies
// the offending field so callers can exclude just that unit.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func itoa(n int) string { return strconv.Itoa(n) }
