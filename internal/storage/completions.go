package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/trainlog/internal/models"
)

// UpsertCompletion stores a completion record. A record for an identity that
// was already logged replaces the earlier one. Returns the record ID.
func (db *DB) UpsertCompletion(ctx context.Context, r models.CompletionRecord) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.LoggedAt.IsZero() {
		r.LoggedAt = time.Now().UTC()
	}
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO performance_logs (id, user_id, program_id, week, day, block, exercise_name,
		 set_number, sets_completed, reps_completed, weight_used, rpe, quality_grade, notes, logged_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT (user_id, program_id, week, day, block, exercise_name, set_number) DO UPDATE
			SET sets_completed = EXCLUDED.sets_completed,
			    reps_completed = EXCLUDED.reps_completed,
			    weight_used = EXCLUDED.weight_used,
			    rpe = EXCLUDED.rpe,
			    quality_grade = EXCLUDED.quality_grade,
			    notes = EXCLUDED.notes,
			    logged_at = EXCLUDED.logged_at
		 RETURNING id`,
		r.ID, r.UserID, r.ProgramID, r.Week, r.Day, r.Block, r.ExerciseName,
		r.SetNumber, r.SetsCompleted, r.RepsCompleted, r.WeightUsed, r.RPE, r.QualityGrade,
		r.Notes, r.LoggedAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting completion: %w", err)
	}
	return id, nil
}

// InsertCompletions batch-inserts imported completion records, keeping
// records already logged for the same identity. Returns count inserted.
func (db *DB) InsertCompletions(ctx context.Context, rows []models.CompletionRecord) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO performance_logs (id, user_id, program_id, week, day, block, exercise_name,
		set_number, sets_completed, reps_completed, weight_used, rpe, quality_grade, notes, logged_at) VALUES `
	args := make([]any, 0, len(rows)*15)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.LoggedAt.IsZero() {
			r.LoggedAt = time.Now().UTC()
		}
		base := i * 15
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			base+9, base+10, base+11, base+12, base+13, base+14, base+15,
		))
		args = append(args, r.ID, r.UserID, r.ProgramID, r.Week, r.Day, r.Block, r.ExerciseName,
			r.SetNumber, r.SetsCompleted, r.RepsCompleted, r.WeightUsed, r.RPE, r.QualityGrade,
			r.Notes, r.LoggedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting completions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryCompletions returns every completion record of a user's program.
func (db *DB) QueryCompletions(ctx context.Context, userID int, programID int64) ([]models.CompletionRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, program_id, week, day, block, exercise_name, set_number,
		 sets_completed, reps_completed, weight_used, rpe, quality_grade, notes, logged_at
		 FROM performance_logs
		 WHERE user_id = $1 AND program_id = $2
		 ORDER BY week, day, logged_at`,
		userID, programID)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var result []models.CompletionRecord
	for rows.Next() {
		var r models.CompletionRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProgramID, &r.Week, &r.Day, &r.Block,
			&r.ExerciseName, &r.SetNumber, &r.SetsCompleted, &r.RepsCompleted, &r.WeightUsed,
			&r.RPE, &r.QualityGrade, &r.Notes, &r.LoggedAt); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
