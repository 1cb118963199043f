package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
)

// RegisterRepository manages persistence for attendance register rows.
type RegisterRepository struct {
	db *sqlx.DB
}

// NewRegisterRepository constructs a RegisterRepository.
func NewRegisterRepository(db *sqlx.DB) *RegisterRepository {
	return &RegisterRepository{db: db}
}

// InsertRows stores a batch of register rows atomically, stamping each with
// an id and creation time.
func (r *RegisterRepository) InsertRows(ctx context.Context, rows []models.RegisterRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO register_rows
        (id, course_name, module_name, sprint_number, name, email, timestamp, region, register_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now().UTC()
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query,
			uuid.NewString(), row.CourseName, row.ModuleName, row.SprintNumber,
			row.Name, row.Email, row.Timestamp, row.Region, row.RegisterURL, now,
		); err != nil {
			return fmt.Errorf("insert register row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register insert: %w", err)
	}
	return nil
}

// ListModuleRows returns every register row for one module of a course in
// insertion order. Order matters to the caller: the earliest stored row for
// a sprint wins reconciliation.
func (r *RegisterRepository) ListModuleRows(ctx context.Context, courseName, moduleName string) ([]models.RegisterRow, error) {
	query := `SELECT id, course_name, module_name, sprint_number, name, email, timestamp, region, register_url, created_at
        FROM register_rows
        WHERE course_name = $1 AND module_name = $2
        ORDER BY created_at ASC, id ASC`

	var rows []models.RegisterRow
	if err := r.db.SelectContext(ctx, &rows, query, courseName, moduleName); err != nil {
		return nil, fmt.Errorf("list register rows: %w", err)
	}
	return rows, nil
}
