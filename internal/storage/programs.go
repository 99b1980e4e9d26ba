package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/claude/trainlog/internal/models"
)

// ProgramRow is a stored program snapshot before decoding.
type ProgramRow struct {
	ID             int64
	UserID         int
	WeeksGenerated []int
	Data           []byte
}

// GetProgram loads a user's program row. Returns ErrNotFound if the program
// does not exist or belongs to another user.
func (db *DB) GetProgram(ctx context.Context, userID int, programID int64) (*ProgramRow, error) {
	var r ProgramRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, weeks_generated, program_data
		 FROM programs WHERE id = $1 AND user_id = $2`,
		programID, userID).Scan(&r.ID, &r.UserID, &r.WeeksGenerated, &r.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("program %d: %w", programID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying program %d: %w", programID, err)
	}
	return &r, nil
}

// UpsertProgram stores a program snapshot. A zero ID allocates a new program.
// Returns the program ID.
func (db *DB) UpsertProgram(ctx context.Context, r ProgramRow) (int64, error) {
	if r.WeeksGenerated == nil {
		r.WeeksGenerated = []int{}
	}
	var id int64
	var err error
	if r.ID == 0 {
		err = db.Pool.QueryRow(ctx,
			`INSERT INTO programs (user_id, weeks_generated, program_data)
			 VALUES ($1, $2, $3) RETURNING id`,
			r.UserID, r.WeeksGenerated, r.Data).Scan(&id)
	} else {
		err = db.Pool.QueryRow(ctx,
			`INSERT INTO programs (id, user_id, weeks_generated, program_data)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE
				SET weeks_generated = EXCLUDED.weeks_generated,
				    program_data = EXCLUDED.program_data,
				    updated_at = NOW()
				WHERE programs.user_id = EXCLUDED.user_id
			 RETURNING id`,
			r.ID, r.UserID, r.WeeksGenerated, r.Data).Scan(&id)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("program %d belongs to another user: %w", r.ID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("upserting program: %w", err)
	}
	if r.ID != 0 {
		// Explicit IDs bypass the sequence.
		if _, err := db.Pool.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence('programs', 'id'), GREATEST((SELECT MAX(id) FROM programs), 1))`); err != nil {
			return 0, fmt.Errorf("advancing program id sequence: %w", err)
		}
	}
	return id, nil
}

// ProgramSummary is a program listing entry.
type ProgramSummary struct {
	ID             int64 `json:"id"`
	WeeksGenerated []int `json:"weeks_generated"`
}

// ListPrograms returns the user's programs, newest first.
func (db *DB) ListPrograms(ctx context.Context, userID int) ([]ProgramSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, weeks_generated FROM programs WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	var result []ProgramSummary
	for rows.Next() {
		var p ProgramSummary
		if err := rows.Scan(&p.ID, &p.WeeksGenerated); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DecodeProgram turns a stored row into a typed program. Problems with
// individual days or exercises are returned alongside the partial program.
func (r *ProgramRow) DecodeProgram() (*models.Program, []error) {
	return models.DecodeProgram(r.ID, r.UserID, r.WeeksGenerated, r.Data)
}
