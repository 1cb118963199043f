package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
)

// Classes start at 10:00 local time; signing in more than ten minutes after
// that counts as late.
const (
	classStartHour = 10
	lateGrace      = 10 * time.Minute
)

type registerStore interface {
	InsertRows(ctx context.Context, rows []models.RegisterRow) error
	ListModuleRows(ctx context.Context, courseName, moduleName string) ([]models.RegisterRow, error)
}

type snapshotInvalidator interface {
	InvalidateBatches(ctx context.Context) error
}

// RegisterRowInput is one attendance register entry as submitted for
// ingestion.
type RegisterRowInput struct {
	ModuleName   string    `json:"module_name" validate:"required"`
	SprintNumber int       `json:"sprint_number" validate:"required,min=1,max=20"`
	Name         string    `json:"name" validate:"required"`
	Email        string    `json:"email" validate:"required,email"`
	Timestamp    time.Time `json:"timestamp" validate:"required"`
	Region       string    `json:"region" validate:"required"`
	RegisterURL  string    `json:"register_url" validate:"omitempty,url"`
}

// RegisterService ingests attendance register rows and reconciles them
// against the schedule into per-sprint attendance submission states.
type RegisterService struct {
	store       registerStore
	invalidator snapshotInvalidator
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRegisterService constructs the register service. invalidator may be
// nil; batch snapshots then simply age out of the cache.
func NewRegisterService(store registerStore, invalidator snapshotInvalidator, logger *zap.Logger) *RegisterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterService{
		store:       store,
		invalidator: invalidator,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// IngestRows validates and stores a batch of register rows for one course.
// Timestamps are normalised to UTC before storage. Returns the number of
// rows stored.
func (s *RegisterService) IngestRows(ctx context.Context, courseName string, inputs []RegisterRowInput) (int, error) {
	if len(inputs) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "register upload contained no rows")
	}
	rows := make([]models.RegisterRow, 0, len(inputs))
	for i, input := range inputs {
		if err := s.validate.Struct(input); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid register row %d", i))
		}
		rows = append(rows, models.RegisterRow{
			CourseName:   courseName,
			ModuleName:   input.ModuleName,
			SprintNumber: input.SprintNumber,
			Name:         input.Name,
			Email:        input.Email,
			Timestamp:    input.Timestamp.UTC(),
			Region:       models.Region(input.Region),
			RegisterURL:  input.RegisterURL,
		})
	}
	if err := s.store.InsertRows(ctx, rows); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store register rows")
	}

	// New rows change reconciliation results, so cached batch snapshots are
	// stale from here on.
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateBatches(ctx); err != nil {
			s.logger.Warn("failed to invalidate batch snapshots after register upload", zap.Error(err))
		}
	}
	return len(rows), nil
}

// ModuleRows fetches the stored register rows for one module of a course.
func (s *RegisterService) ModuleRows(ctx context.Context, courseName, moduleName string) ([]models.RegisterRow, error) {
	rows, err := s.store.ListModuleRows(ctx, courseName, moduleName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load register rows for module %s", moduleName))
	}
	return rows, nil
}

// Reconcile turns one trainee's register rows for a module into a
// SubmissionState per sprint, aligned with the module's sprint order. Rows
// outside the batch window are ignored; when several rows hit the same
// sprint the earliest stored one wins. Sprints whose class has passed with
// no row become submitted absences so they weigh on the score.
func (s *RegisterService) Reconcile(module models.Module, rows []models.RegisterRow, trainee models.Trainee, batchStart, batchEnd time.Time) []models.SubmissionState {
	// Without a directory email no row can be attributed to the trainee.
	// Returning no states keeps the seeded Missing* slots in place instead of
	// fabricating absences.
	if trainee.Email == "" {
		return nil
	}

	now := s.now()
	bySprint := make(map[int]models.RegisterRow)
	for _, row := range rows {
		if !matchesTrainee(row, trainee) {
			continue
		}
		if row.Timestamp.Before(batchStart) || row.Timestamp.After(batchEnd) {
			s.logger.Warn("register row outside batch window",
				zap.String("email", row.Email),
				zap.String("module", module.Name),
				zap.Time("timestamp", row.Timestamp))
			continue
		}
		if _, seen := bySprint[row.SprintNumber]; seen {
			s.logger.Warn("duplicate register row for sprint",
				zap.String("email", row.Email),
				zap.String("module", module.Name),
				zap.Int("sprint", row.SprintNumber))
			continue
		}
		bySprint[row.SprintNumber] = row
	}

	states := make([]models.SubmissionState, len(module.Sprints))
	for sprintIdx, sprint := range module.Sprints {
		assignment, ok := attendanceAssignment(sprint)
		if !ok {
			states[sprintIdx] = models.SubmissionState{Status: models.SubmissionMissingButNotExpected}
			continue
		}
		row, found := bySprint[sprintIdx+1]
		if !found {
			if sprint.IsInPast(trainee.Region, now) {
				states[sprintIdx] = models.SubmittedAttendance(assignment, models.AttendanceSubmission{
					Outcome: models.AttendanceAbsent,
				})
			} else {
				states[sprintIdx] = models.SubmissionState{
					Status:     models.SubmissionMissingButNotExpected,
					Assignment: assignment,
				}
			}
			continue
		}
		states[sprintIdx] = models.SubmittedAttendance(assignment, models.AttendanceSubmission{
			Outcome:     attendanceOutcome(sprint, trainee.Region, row.Timestamp),
			RegisterURL: row.RegisterURL,
		})
	}
	return states
}

func matchesTrainee(row models.RegisterRow, trainee models.Trainee) bool {
	return trainee.Email != "" && models.NormalizeLogin(row.Email) == models.NormalizeLogin(trainee.Email)
}

func attendanceAssignment(sprint models.Sprint) (models.Assignment, bool) {
	for _, assignment := range sprint.Assignments {
		if assignment.Kind == models.AssignmentAttendance {
			return assignment, true
		}
	}
	return models.Assignment{}, false
}

// attendanceOutcome classifies a sign-in against the sprint's class date in
// the trainee's local timezone.
func attendanceOutcome(sprint models.Sprint, region models.Region, timestamp time.Time) models.AttendanceOutcome {
	classDate, ok := sprint.Dates[region]
	if !ok {
		return models.AttendanceWrongDay
	}
	loc := region.Timezone()
	local := timestamp.In(loc)
	if local.Year() != classDate.Year() || local.Month() != classDate.Month() || local.Day() != classDate.Day() {
		return models.AttendanceWrongDay
	}
	start := time.Date(classDate.Year(), classDate.Month(), classDate.Day(), classStartHour, 0, 0, 0, loc)
	if local.After(start.Add(lateGrace)) {
		return models.AttendanceLate
	}
	return models.AttendanceOnTime
}
