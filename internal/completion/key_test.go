package completion

import (
	"testing"

	"github.com/claude/trainlog/internal/models"
)

// TestKey verifies the canonical identity format for first and later sets.
func TestKey(t *testing.T) {
	cases := []struct {
		block, exercise string
		set             int
		want            string
	}{
		{"STRENGTH AND POWER", "Back Squat", 1, "STRENGTH AND POWER:Back Squat"},
		{"STRENGTH AND POWER", "Back Squat", 0, "STRENGTH AND POWER:Back Squat"},
		{"STRENGTH AND POWER", "Back Squat", 3, "STRENGTH AND POWER:Back Squat - Set 3"},
		{"ACCESSORIES", "Back Squat", 2, "ACCESSORIES:Back Squat - Set 2"},
	}
	for _, tc := range cases {
		if got := Key(tc.block, tc.exercise, tc.set); got != tc.want {
			t.Errorf("Key(%q, %q, %d) = %q, want %q", tc.block, tc.exercise, tc.set, got, tc.want)
		}
	}
}

// TestKeyBlocksNeverCollide verifies that the same exercise prescribed in two
// blocks on the same day resolves to distinct identities.
func TestKeyBlocksNeverCollide(t *testing.T) {
	a := Key("SKILLS", "Pull-ups", 2)
	b := Key("ACCESSORIES", "Pull-ups", 2)
	if a == b {
		t.Fatalf("keys collide: %q", a)
	}
}

// TestLegacyKey verifies the pre-qualification identity has no block prefix.
func TestLegacyKey(t *testing.T) {
	if got := LegacyKey("Deadlift", 1); got != "Deadlift" {
		t.Errorf("LegacyKey = %q, want %q", got, "Deadlift")
	}
	if got := LegacyKey("Deadlift", 4); got != "Deadlift - Set 4" {
		t.Errorf("LegacyKey = %q, want %q", got, "Deadlift - Set 4")
	}
}

// TestRecordKey verifies that records without a block fall back to the legacy form.
func TestRecordKey(t *testing.T) {
	withBlock := &models.CompletionRecord{Block: "SKILLS", ExerciseName: "Handstand Hold", SetNumber: 2}
	if got := RecordKey(withBlock); got != "SKILLS:Handstand Hold - Set 2" {
		t.Errorf("RecordKey = %q", got)
	}
	legacy := &models.CompletionRecord{ExerciseName: "Handstand Hold", SetNumber: 1}
	if got := RecordKey(legacy); got != "Handstand Hold" {
		t.Errorf("RecordKey = %q", got)
	}
}
