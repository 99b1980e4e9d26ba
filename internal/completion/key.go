// Package completion resolves prescription identities and evaluates block
// completion against logged records.
package completion

import (
	"strconv"

	"github.com/claude/trainlog/internal/models"
)

// Key returns the block-qualified identity of one prescribed set:
// "{block}:{exercise}" for the first set, "{block}:{exercise} - Set {N}" after.
func Key(block, exercise string, set int) string {
	return withSet(block+":"+exercise, set)
}

// LegacyKey returns the identity used by records written before completions
// carried their block name.
//
// TODO: drop once stored completions are migrated to block-qualified keys.
func LegacyKey(exercise string, set int) string {
	return withSet(exercise, set)
}

func withSet(base string, set int) string {
	if set > 1 {
		return base + " - Set " + strconv.Itoa(set)
	}
	return base
}

// RecordKey returns the identity a logged record is stored under. Records
// without a block name resolve to the legacy form.
func RecordKey(r *models.CompletionRecord) string {
	if r.Block == "" {
		return LegacyKey(r.ExerciseName, r.SetNumber)
	}
	return Key(r.Block, r.ExerciseName, r.SetNumber)
}

// PrescriptionKeys returns the qualified and legacy identities of a prescription.
func PrescriptionKeys(block string, ex models.ExercisePrescription) (qualified, legacy string) {
	set := ex.SetNumber
	if set < 1 {
		set = 1
	}
	return Key(block, ex.Name, set), LegacyKey(ex.Name, set)
}
