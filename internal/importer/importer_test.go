package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/storage"
)

type fakeStore struct {
	programs    map[int64]storage.ProgramRow
	completions map[string]models.CompletionRecord
	metcons     []models.MetConCompletion
	records     []models.HeatMapRecord
	engine      []models.EngineSession
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		programs:    map[int64]storage.ProgramRow{},
		completions: map[string]models.CompletionRecord{},
		nextID:      100,
	}
}

func (f *fakeStore) UpsertProgram(_ context.Context, r storage.ProgramRow) (int64, error) {
	if r.ID == 0 {
		f.nextID++
		r.ID = f.nextID
	}
	f.programs[r.ID] = r
	return r.ID, nil
}

func (f *fakeStore) GetProgram(_ context.Context, userID int, programID int64) (*storage.ProgramRow, error) {
	r, ok := f.programs[programID]
	if !ok || r.UserID != userID {
		return nil, fmt.Errorf("program %d: %w", programID, storage.ErrNotFound)
	}
	return &r, nil
}

func (f *fakeStore) InsertCompletions(_ context.Context, rows []models.CompletionRecord) (int64, error) {
	var n int64
	for _, r := range rows {
		k := fmt.Sprintf("%d/%d/%d/%d/%s/%s/%d", r.UserID, r.ProgramID, r.Week, r.Day, r.Block, r.ExerciseName, r.SetNumber)
		if _, dup := f.completions[k]; dup {
			continue
		}
		f.completions[k] = r
		n++
	}
	return n, nil
}

func (f *fakeStore) CompleteMetCon(_ context.Context, mc models.MetConCompletion, records []models.HeatMapRecord) (uuid.UUID, error) {
	f.metcons = append(f.metcons, mc)
	f.records = append(f.records, records...)
	return uuid.New(), nil
}

func (f *fakeStore) UpsertEngineSession(_ context.Context, s models.EngineSession) error {
	f.engine = append(f.engine, s)
	return nil
}

const programData = `{"weeks":[{"week":1,"days":[
  {"day":1,"blocks":[
    {"blockName":"STRENGTH AND POWER","exercises":[{"name":"Back Squat","sets":1,"notes":"Set 1"}]},
    {"blockName":"METCONS","exercises":[]}
  ],
  "metconData":{"id":42,"workoutFormat":"For Time","timeRange":"5-10",
    "tasks":[{"exercise":"Thrusters","reps":21},{"exercise":"Pull-ups","reps":21}],
    "percentileGuidance":{"medianScore":"10:00","excellentScore":"7:30"}},
  "engineData":{"dayNumber":3}}
]}]}`

const exportFile = `{
  "user_id": 7,
  "programs": [{"id": 12, "weeks_generated": [1], "program_data": ` + programData + `}],
  "performance_logs": [
    {"program_id": 12, "week": 1, "day": 1, "block": "STRENGTH AND POWER", "exercise_name": "Back Squat", "set_number": 1},
    {"program_id": 12, "week": 1, "day": 1, "block": "STRENGTH AND POWER", "exercise_name": "Back Squat "},
    {"program_id": 12, "week": 1, "day": 9, "block": "STRENGTH AND POWER", "exercise_name": "Back Squat", "set_number": 1}
  ],
  "metcon_completions": [{"program_id": 12, "week": 1, "day": 1, "score": "8:45"}],
  "engine_sessions": [{"program_id": 12, "program_day_number": 3, "completed": true}]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// TestImport verifies that an export file lands programs, valid completion
// records, ranked MetCons with heat-map records and Engine sessions. A record
// without a set number is a duplicate of set 1.
func TestImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export.json", exportFile)
	writeFile(t, dir, "notes.txt", "ignored")

	store := newFakeStore()
	stats, err := New(store, testLogger(), nil, nil, false).Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.FilesProcessed != 1 || stats.FilesErrored != 0 {
		t.Errorf("files processed/errored = %d/%d, want 1/0", stats.FilesProcessed, stats.FilesErrored)
	}
	if stats.ProgramsImported != 1 {
		t.Errorf("programs = %d, want 1", stats.ProgramsImported)
	}
	if stats.CompletionsInserted != 1 || stats.CompletionsDuplicate != 1 || stats.CompletionsRejected != 1 {
		t.Errorf("completions inserted/dup/rejected = %d/%d/%d, want 1/1/1",
			stats.CompletionsInserted, stats.CompletionsDuplicate, stats.CompletionsRejected)
	}
	if stats.EngineSessions != 1 || len(store.engine) != 1 || store.engine[0].UserID != 7 {
		t.Errorf("engine sessions = %d stored %v", stats.EngineSessions, store.engine)
	}

	if len(store.metcons) != 1 {
		t.Fatalf("metcons stored = %d, want 1", len(store.metcons))
	}
	mc := store.metcons[0]
	if mc.MetConID != 42 {
		t.Errorf("metcon id = %d, want 42 from the program", mc.MetConID)
	}
	if mc.Percentile == nil || *mc.Percentile != 70 {
		t.Errorf("percentile = %v, want 70", mc.Percentile)
	}
	if mc.Tier != "Good" {
		t.Errorf("tier = %q, want Good", mc.Tier)
	}
	if len(store.records) != 2 || stats.HeatMapRecords != 2 {
		t.Errorf("heat-map records = %d (stats %d), want 2", len(store.records), stats.HeatMapRecords)
	}
}

// TestImport_DryRun verifies that dry-run mode counts records without writing.
func TestImport_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export.json", exportFile)

	store := newFakeStore()
	stats, err := New(store, testLogger(), nil, nil, true).Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(store.programs) != 0 || len(store.completions) != 0 || len(store.metcons) != 0 || len(store.engine) != 0 {
		t.Error("dry run wrote to the store")
	}
	if stats.CompletionsInserted != 2 {
		t.Errorf("counted completions = %d, want 2", stats.CompletionsInserted)
	}
	if stats.MetConsImported != 1 || stats.HeatMapRecords != 2 {
		t.Errorf("metcons/records = %d/%d, want 1/2", stats.MetConsImported, stats.HeatMapRecords)
	}
}

// TestImport_BadFiles verifies that unparseable exports and exports without
// a user are counted as errored and do not stop the import.
func TestImport_BadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{not json`)
	writeFile(t, dir, "b.json", `{"programs": []}`)
	writeFile(t, dir, "c.json", exportFile)

	stats, err := New(newFakeStore(), testLogger(), nil, nil, false).Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.FilesErrored != 2 || stats.FilesProcessed != 1 {
		t.Errorf("errored/processed = %d/%d, want 2/1", stats.FilesErrored, stats.FilesProcessed)
	}
}

// TestImport_MetConAgainstStoredProgram verifies that a MetCon score is
// ranked against a program already in the database when the export does not
// carry the program.
func TestImport_MetConAgainstStoredProgram(t *testing.T) {
	store := newFakeStore()
	store.programs[12] = storage.ProgramRow{ID: 12, UserID: 7, WeeksGenerated: []int{1}, Data: []byte(programData)}

	dir := t.TempDir()
	writeFile(t, dir, "scores.json", `{"user_id": 7, "metcon_completions": [
		{"program_id": 12, "week": 1, "day": 1, "metcon_id": 42, "score": "7:30"},
		{"program_id": 99, "week": 1, "day": 1, "metcon_id": 5, "score": "7:30"}
	]}`)

	stats, err := New(store, testLogger(), nil, nil, false).Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(store.metcons) != 2 {
		t.Fatalf("metcons stored = %d, want 2", len(store.metcons))
	}
	if p := store.metcons[0].Percentile; p == nil || *p != 90 {
		t.Errorf("stored program percentile = %v, want 90", p)
	}
	if store.metcons[1].Percentile != nil {
		t.Errorf("unknown program percentile = %v, want nil", *store.metcons[1].Percentile)
	}
	if stats.MetConsUnranked != 1 {
		t.Errorf("unranked = %d, want 1", stats.MetConsUnranked)
	}
}

// TestImport_StateSkipsImportedFiles verifies that a second run over an
// unchanged directory skips files recorded in the state database.
func TestImport_StateSkipsImportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export.json", exportFile)

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	defer state.Close()

	store := newFakeStore()
	if _, err := New(store, testLogger(), nil, state, false).Import(context.Background(), dir); err != nil {
		t.Fatalf("first import: %v", err)
	}
	stats, err := New(store, testLogger(), nil, state, false).Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.FilesSkipped != 1 || stats.FilesProcessed != 0 {
		t.Errorf("skipped/processed = %d/%d, want 1/0", stats.FilesSkipped, stats.FilesProcessed)
	}
	if len(store.metcons) != 1 {
		t.Errorf("metcons stored = %d, want 1", len(store.metcons))
	}

	writeFile(t, dir, "export.json", exportFile+"\n")
	stats, err = New(store, testLogger(), nil, state, false).Import(context.Background(), dir)
	if err != nil {
		t.Fatalf("third import: %v", err)
	}
	if stats.FilesProcessed != 1 {
		t.Errorf("changed file processed = %d, want 1", stats.FilesProcessed)
	}
}

// TestStateDB verifies that a file is only reported imported for the same
// size and hash.
func TestStateDB(t *testing.T) {
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	defer state.Close()

	if err := state.MarkImported("a.json", 10, "abc", 3); err != nil {
		t.Fatalf("MarkImported: %v", err)
	}

	cases := []struct {
		path string
		size int64
		hash string
		want bool
	}{
		{"a.json", 10, "abc", true},
		{"a.json", 11, "abc", false},
		{"a.json", 10, "abd", false},
		{"b.json", 10, "abc", false},
	}
	for _, tc := range cases {
		got, err := state.IsImported(tc.path, tc.size, tc.hash)
		if err != nil {
			t.Fatalf("IsImported(%s): %v", tc.path, err)
		}
		if got != tc.want {
			t.Errorf("IsImported(%s, %d, %s) = %v, want %v", tc.path, tc.size, tc.hash, got, tc.want)
		}
	}
}
