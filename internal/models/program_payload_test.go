package models

import (
	"testing"
)

const samplePayload = `{
  "weeks": [
    {
      "week": 1,
      "days": [
        {
          "day": 1,
          "dayName": "Day 1",
          "blocks": [
            {"blockName": "SKILLS", "exercises": [
              {"name": "Double Unders", "sets": 3, "reps": "30", "notes": ""}
            ]},
            {"blockName": "STRENGTH AND POWER", "exercises": [
              {"name": "Back Squat", "sets": "1", "reps": 5, "weight": 225, "notes": "Set 1"},
              {"name": "Back Squat", "sets": "1", "reps": 5, "weight": 235, "notes": "Intermediate - Set 2"},
              {"name": "Back Squat", "sets": "1", "reps": 5, "weight": 245, "setNumber": 3}
            ]},
            {"blockName": "METCONS", "exercises": []},
            {"blockName": "metcons", "exercises": []}
          ],
          "metconData": {
            "id": 42,
            "workoutId": "MC-042",
            "workoutFormat": "For Time",
            "timeRange": "5-10",
            "tasks": [
              {"exercise": "Thrusters", "reps": 21},
              {"exercise": "Pull-ups", "reps": "21"}
            ],
            "percentileGuidance": {"medianScore": "10:00", "excellentScore": "7:30"}
          }
        },
        {
          "day": 2,
          "blocks": [
            {"blockName": "ACCESSORIES", "exercises": [
              {"name": "", "sets": 3},
              {"name": "Ring Rows", "notes": "Set 0"},
              {"name": "Farmer Carry", "sets": 2}
            ]}
          ],
          "engineData": {"dayNumber": 7}
        },
        {"day": 3, "blocks": "not-a-list"}
      ]
    }
  ]
}`

// TestDecodeProgram verifies that a program document is turned into typed
// blocks with set numbers resolved from notes or explicit fields.
func TestDecodeProgram(t *testing.T) {
	p, problems := DecodeProgram(9, 4, []int{1}, []byte(samplePayload))
	if p.ID != 9 || p.UserID != 4 {
		t.Fatalf("identity = %d/%d, want 9/4", p.ID, p.UserID)
	}

	day, ok := p.Day(1, 1)
	if !ok {
		t.Fatal("week 1 day 1 missing")
	}
	if len(day.Blocks) != 3 {
		t.Fatalf("day 1 blocks = %d, want 3 (duplicate METCONS ignored)", len(day.Blocks))
	}

	strength, ok := day.Blocks[1].(RegularBlock)
	if !ok {
		t.Fatalf("block 1 is %T, want RegularBlock", day.Blocks[1])
	}
	for i, want := range []int{1, 2, 3} {
		if got := strength.Exercises[i].SetNumber; got != want {
			t.Errorf("exercise %d set = %d, want %d", i, got, want)
		}
	}
	if strength.Exercises[0].Weight != "225" || strength.Exercises[0].Reps != "5" {
		t.Errorf("numeric fields not kept as text: %+v", strength.Exercises[0])
	}

	mc := day.MetCon()
	if mc == nil {
		t.Fatal("day 1 MetCon missing")
	}
	if mc.ID != 42 || mc.Format != FormatForTime || mc.TimeDomain != "5-10" {
		t.Errorf("metcon = %+v", mc)
	}
	if len(mc.Tasks) != 2 || mc.Tasks[1].Reps != 21 {
		t.Errorf("tasks = %+v", mc.Tasks)
	}
	if mc.Guidance == nil || mc.Guidance.MedianScore != "10:00" {
		t.Errorf("guidance = %+v", mc.Guidance)
	}

	// 2 bad exercises on day 2 and one malformed day 3.
	if len(problems) != 3 {
		t.Errorf("problems = %d, want 3: %v", len(problems), problems)
	}
}

// TestDecodeProgram_IsolatesBadUnits verifies that invalid exercises are
// dropped from their block and a malformed day keeps its place without blocks.
func TestDecodeProgram_IsolatesBadUnits(t *testing.T) {
	p, _ := DecodeProgram(9, 4, []int{1}, []byte(samplePayload))

	day2, ok := p.Day(1, 2)
	if !ok {
		t.Fatal("week 1 day 2 missing")
	}
	acc := day2.Blocks[0].(RegularBlock)
	if len(acc.Exercises) != 1 || acc.Exercises[0].Name != "Farmer Carry" {
		t.Errorf("accessories = %+v, want only Farmer Carry", acc.Exercises)
	}

	// Engine data without an ENGINE block still yields an Engine block.
	if len(day2.Blocks) != 2 {
		t.Fatalf("day 2 blocks = %d, want 2", len(day2.Blocks))
	}
	eng, ok := day2.Blocks[1].(EngineBlock)
	if !ok || eng.Ref == nil || eng.Ref.DayNumber != 7 {
		t.Errorf("engine block = %#v", day2.Blocks[1])
	}

	day3, ok := p.Day(1, 3)
	if !ok {
		t.Fatal("malformed day 3 should be kept")
	}
	if len(day3.Blocks) != 0 {
		t.Errorf("day 3 blocks = %d, want 0", len(day3.Blocks))
	}
}

// TestDecodeProgram_EngineWithoutData verifies that an ENGINE block on a day
// without engine data is kept unreferenced and reported.
func TestDecodeProgram_EngineWithoutData(t *testing.T) {
	doc := `{"weeks":[{"week":1,"days":[{"day":1,"blocks":[
	  {"blockName":"SKILLS","exercises":[{"name":"Handstand Walk","sets":1}]},
	  {"blockName":"ENGINE","exercises":[]}]}]}]}`
	p, problems := DecodeProgram(1, 1, []int{1}, []byte(doc))
	if len(problems) != 1 {
		t.Errorf("problems = %v, want 1", problems)
	}
	day, ok := p.Day(1, 1)
	if !ok || len(day.Blocks) != 2 {
		t.Fatalf("day 1 = %+v", day)
	}
	if eng, ok := day.Blocks[1].(EngineBlock); !ok || eng.Ref != nil {
		t.Errorf("engine block = %#v, want unreferenced", day.Blocks[1])
	}
}

// TestDecodeProgram_Empty verifies that an empty document yields an empty
// program and a non-JSON document reports one problem.
func TestDecodeProgram_Empty(t *testing.T) {
	p, problems := DecodeProgram(1, 1, nil, nil)
	if len(p.Weeks) != 0 || len(problems) != 0 {
		t.Errorf("empty: weeks=%d problems=%v", len(p.Weeks), problems)
	}
	p, problems = DecodeProgram(1, 1, nil, []byte("{"))
	if len(p.Weeks) != 0 || len(problems) != 1 {
		t.Errorf("garbage: weeks=%d problems=%v", len(p.Weeks), problems)
	}
}

// TestKindForName verifies block name matching ignores case and whitespace.
func TestKindForName(t *testing.T) {
	cases := []struct {
		name string
		want BlockKind
	}{
		{"METCONS", BlockKindMetCon},
		{" metcons ", BlockKindMetCon},
		{"Engine", BlockKindEngine},
		{"SKILLS", BlockKindRegular},
		{"", BlockKindRegular},
	}
	for _, tc := range cases {
		if got := KindForName(tc.name); got != tc.want {
			t.Errorf("KindForName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

// TestFlexStringInt verifies the leading integer of loosely typed counts.
func TestFlexStringInt(t *testing.T) {
	cases := []struct {
		in   FlexString
		want int
	}{
		{"3", 3},
		{" 12 reps", 12},
		{"max", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := tc.in.Int(); got != tc.want {
			t.Errorf("FlexString(%q).Int() = %d, want %d", tc.in, got, tc.want)
		}
	}
}

// TestCompletionRecordValidate verifies that identity fields are checked.
func TestCompletionRecordValidate(t *testing.T) {
	rpe := 11
	cases := []struct {
		name    string
		rec     CompletionRecord
		wantErr bool
	}{
		{"valid", CompletionRecord{ExerciseName: "Row", Week: 1, Day: 5, SetNumber: 1}, false},
		{"no name", CompletionRecord{Week: 1, Day: 1}, true},
		{"negative set", CompletionRecord{ExerciseName: "Row", Week: 1, Day: 1, SetNumber: -1}, true},
		{"day 6", CompletionRecord{ExerciseName: "Row", Week: 1, Day: 6}, true},
		{"week 0", CompletionRecord{ExerciseName: "Row", Day: 1}, true},
		{"rpe 11", CompletionRecord{ExerciseName: "Row", Week: 1, Day: 1, RPE: &rpe}, true},
	}
	for _, tc := range cases {
		err := tc.rec.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

// TestCompletionRecordNormalize verifies that an omitted set number and set 1
// resolve to the same stored identity.
func TestCompletionRecordNormalize(t *testing.T) {
	cases := []struct {
		name    string
		rec     CompletionRecord
		wantSet int
	}{
		{"omitted set", CompletionRecord{Block: " SKILLS ", ExerciseName: " Row ", SetNumber: 0}, 1},
		{"first set", CompletionRecord{Block: "SKILLS", ExerciseName: "Row", SetNumber: 1}, 1},
		{"third set", CompletionRecord{Block: "SKILLS", ExerciseName: "Row", SetNumber: 3}, 3},
		{"negative left for validation", CompletionRecord{Block: "SKILLS", ExerciseName: "Row", SetNumber: -2}, -2},
	}
	for _, tc := range cases {
		r := tc.rec
		r.Normalize()
		if r.SetNumber != tc.wantSet {
			t.Errorf("%s: set = %d, want %d", tc.name, r.SetNumber, tc.wantSet)
		}
		if r.Block != "SKILLS" || r.ExerciseName != "Row" {
			t.Errorf("%s: names not trimmed: %q %q", tc.name, r.Block, r.ExerciseName)
		}
	}
}
