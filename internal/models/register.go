package models

import "time"

// RegisterRow is one raw attendance register entry as ingested from the
// class register. Timestamps are stored in UTC.
type RegisterRow struct {
	ID           string    `json:"id" db:"id"`
	CourseName   string    `json:"course_name" db:"course_name"`
	ModuleName   string    `json:"module_name" db:"module_name"`
	SprintNumber int       `json:"sprint_number" db:"sprint_number"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Region       Region    `json:"region" db:"region"`
	RegisterURL  string    `json:"register_url" db:"register_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
