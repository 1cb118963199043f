package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
)

// TraineeRepository reads the trainee directory, which maps GitHub logins to
// names, emails and regions.
type TraineeRepository struct {
	db *sqlx.DB
}

// NewTraineeRepository constructs a TraineeRepository.
func NewTraineeRepository(db *sqlx.DB) *TraineeRepository {
	return &TraineeRepository{db: db}
}

// ListTrainees returns the directory entries for one course.
func (r *TraineeRepository) ListTrainees(ctx context.Context, courseName string) ([]models.Trainee, error) {
	query := `SELECT github_login, name, email, region
        FROM trainees
        WHERE course_name = $1
        ORDER BY github_login ASC`

	var trainees []models.Trainee
	if err := r.db.SelectContext(ctx, &trainees, query, courseName); err != nil {
		return nil, fmt.Errorf("list trainees: %w", err)
	}
	return trainees, nil
}
