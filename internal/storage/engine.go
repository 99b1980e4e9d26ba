package storage

import (
	"context"
	"fmt"

	"github.com/claude/trainlog/internal/models"
)

// UpsertEngineSession records the state of an Engine session.
func (db *DB) UpsertEngineSession(ctx context.Context, s models.EngineSession) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO engine_sessions (user_id, program_id, program_day_number, completed)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, program_id, program_day_number) DO UPDATE
			SET completed = EXCLUDED.completed, logged_at = NOW()`,
		s.UserID, s.ProgramID, s.DayNumber, s.Completed)
	if err != nil {
		return fmt.Errorf("upserting engine session: %w", err)
	}
	return nil
}

// QueryEngineSessions returns the Engine sessions of a user's program.
func (db *DB) QueryEngineSessions(ctx context.Context, userID int, programID int64) ([]models.EngineSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, program_id, program_day_number, completed
		 FROM engine_sessions
		 WHERE user_id = $1 AND program_id = $2
		 ORDER BY program_day_number`,
		userID, programID)
	if err != nil {
		return nil, fmt.Errorf("querying engine sessions: %w", err)
	}
	defer rows.Close()

	var result []models.EngineSession
	for rows.Next() {
		var s models.EngineSession
		if err := rows.Scan(&s.UserID, &s.ProgramID, &s.DayNumber, &s.Completed); err != nil {
			return nil, fmt.Errorf("scanning engine session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
