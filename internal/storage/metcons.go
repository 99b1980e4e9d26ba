package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/trainlog/internal/models"
)

// CompleteMetCon marks a MetCon done and replaces the per-exercise heat-map
// records of that completion, in one transaction. Returns the completion ID.
func (db *DB) CompleteMetCon(ctx context.Context, mc models.MetConCompletion, records []models.HeatMapRecord) (uuid.UUID, error) {
	if mc.ID == uuid.Nil {
		mc.ID = uuid.New()
	}
	if mc.CompletedAt.IsZero() {
		mc.CompletedAt = time.Now().UTC()
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO program_metcons (id, user_id, program_id, week, day, metcon_id, score,
		 percentile, performance_tier, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (user_id, program_id, week, day, metcon_id) DO UPDATE
			SET score = EXCLUDED.score,
			    percentile = EXCLUDED.percentile,
			    performance_tier = EXCLUDED.performance_tier,
			    completed_at = EXCLUDED.completed_at
		 RETURNING id`,
		mc.ID, mc.UserID, mc.ProgramID, mc.Week, mc.Day, mc.MetConID, mc.Score,
		mc.Percentile, mc.Tier, mc.CompletedAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting metcon completion: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM exercise_percentile_log WHERE metcon_completion_id = $1`, id); err != nil {
		return uuid.Nil, fmt.Errorf("clearing exercise percentiles: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		tags := r.EquipmentTags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(
			`INSERT INTO exercise_percentile_log (user_id, program_id, metcon_completion_id,
			 exercise_name, time_domain, percentile, equipment, logged_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			mc.UserID, mc.ProgramID, id, r.ExerciseName, r.TimeDomain, r.Percentile, tags, mc.CompletedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return uuid.Nil, fmt.Errorf("inserting exercise percentiles: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing metcon completion: %w", err)
	}
	return id, nil
}

// QueryMetConCompletions returns the MetCon completion flags of a user's program.
func (db *DB) QueryMetConCompletions(ctx context.Context, userID int, programID int64) ([]models.MetConCompletion, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, program_id, week, day, metcon_id, COALESCE(score, ''),
		 percentile, COALESCE(performance_tier, ''), completed_at
		 FROM program_metcons
		 WHERE user_id = $1 AND program_id = $2
		 ORDER BY week, day`,
		userID, programID)
	if err != nil {
		return nil, fmt.Errorf("querying metcon completions: %w", err)
	}
	defer rows.Close()

	var result []models.MetConCompletion
	for rows.Next() {
		var m models.MetConCompletion
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProgramID, &m.Week, &m.Day, &m.MetConID,
			&m.Score, &m.Percentile, &m.Tier, &m.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning metcon completion: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// QueryHeatMapRecords returns the per-exercise percentile records of a user.
// programID 0 spans all programs.
func (db *DB) QueryHeatMapRecords(ctx context.Context, userID int, programID int64) ([]models.HeatMapRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_name, time_domain, percentile, equipment
		 FROM exercise_percentile_log
		 WHERE user_id = $1 AND ($2::bigint = 0 OR program_id = $2)
		 ORDER BY logged_at`,
		userID, programID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise percentiles: %w", err)
	}
	defer rows.Close()

	var result []models.HeatMapRecord
	for rows.Next() {
		var r models.HeatMapRecord
		if err := rows.Scan(&r.ExerciseName, &r.TimeDomain, &r.Percentile, &r.EquipmentTags); err != nil {
			return nil, fmt.Errorf("scanning exercise percentile: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
