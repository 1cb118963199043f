package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
)

type registerStoreMock struct {
	inserted  []models.RegisterRow
	rows      []models.RegisterRow
	insertErr error
	listErr   error
}

func (m *registerStoreMock) InsertRows(ctx context.Context, rows []models.RegisterRow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, rows...)
	return nil
}

func (m *registerStoreMock) ListModuleRows(ctx context.Context, courseName, moduleName string) ([]models.RegisterRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rows, nil
}

type invalidatorMock struct {
	calls int
	err   error
}

func (m *invalidatorMock) InvalidateBatches(ctx context.Context) error {
	m.calls++
	return m.err
}

var (
	batchStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	batchEnd   = time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
)

func fixedRegister(t *testing.T) *RegisterService {
	t.Helper()
	svc := NewRegisterService(&registerStoreMock{}, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func attendanceModule() models.Module {
	past := map[models.Region]time.Time{"London": time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)}
	future := map[models.Region]time.Time{"London": time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	return models.Module{
		Name: "javascript",
		Sprints: []models.Sprint{
			{Assignments: []models.Assignment{models.NewAttendanceAssignment(past)}, Dates: past},
			{Assignments: []models.Assignment{models.NewAttendanceAssignment(future)}, Dates: future},
		},
	}
}

func registerRow(sprint int, ts time.Time) models.RegisterRow {
	return models.RegisterRow{
		CourseName:   "itp",
		ModuleName:   "javascript",
		SprintNumber: sprint,
		Name:         "Jane Doe",
		Email:        "Jane@Example.com",
		Timestamp:    ts,
		Region:       "London",
		RegisterURL:  "https://register.example.com/1",
	}
}

func testTrainee() models.Trainee {
	return models.Trainee{GithubLogin: "janedoe", Name: "Jane Doe", Email: "jane@example.com", Region: "London"}
}

func TestReconcileOnTime(t *testing.T) {
	// London is on GMT in early March, so UTC timestamps read as local time.
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, testTrainee(), batchStart, batchEnd)
	require.Len(t, states, 2)
	require.True(t, states[0].IsSubmitted())
	assert.Equal(t, models.AttendanceOnTime, states[0].Submission.Attendance.Outcome)
	assert.Equal(t, "https://register.example.com/1", states[0].Submission.Attendance.RegisterURL)
}

func TestReconcileGraceBoundary(t *testing.T) {
	// Exactly ten minutes after the start still counts as on time.
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 10, 10, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, testTrainee(), batchStart, batchEnd)
	assert.Equal(t, models.AttendanceOnTime, states[0].Submission.Attendance.Outcome)
}

func TestReconcileLate(t *testing.T) {
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 10, 25, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, testTrainee(), batchStart, batchEnd)
	assert.Equal(t, models.AttendanceLate, states[0].Submission.Attendance.Outcome)
}

func TestReconcileWrongDay(t *testing.T) {
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 6, 9, 0, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, testTrainee(), batchStart, batchEnd)
	assert.Equal(t, models.AttendanceWrongDay, states[0].Submission.Attendance.Outcome)
}

func TestReconcileAbsentWhenClassPassed(t *testing.T) {
	states := fixedRegister(t).Reconcile(attendanceModule(), nil, testTrainee(), batchStart, batchEnd)

	require.True(t, states[0].IsSubmitted())
	assert.Equal(t, models.AttendanceAbsent, states[0].Submission.Attendance.Outcome)
	// The second sprint has not happened yet.
	assert.Equal(t, models.SubmissionMissingButNotExpected, states[1].Status)
}

func TestReconcileDuplicateRowsFirstWins(t *testing.T) {
	rows := []models.RegisterRow{
		registerRow(1, time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC)),
		registerRow(1, time.Date(2025, 3, 5, 11, 0, 0, 0, time.UTC)),
	}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, testTrainee(), batchStart, batchEnd)
	assert.Equal(t, models.AttendanceOnTime, states[0].Submission.Attendance.Outcome)
}

func TestReconcileSkipsRowsOutsideBatchWindow(t *testing.T) {
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 2, 5, 9, 55, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, testTrainee(), batchStart, batchEnd)
	assert.Equal(t, models.AttendanceAbsent, states[0].Submission.Attendance.Outcome)
}

func TestReconcileMatchesEmailCaseInsensitively(t *testing.T) {
	trainee := testTrainee()
	trainee.Email = "JANE@EXAMPLE.COM"
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, trainee, batchStart, batchEnd)
	assert.Equal(t, models.AttendanceOnTime, states[0].Submission.Attendance.Outcome)
}

func TestReconcileIgnoresOtherTrainees(t *testing.T) {
	trainee := testTrainee()
	trainee.Email = "someone.else@example.com"
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, trainee, batchStart, batchEnd)
	assert.Equal(t, models.AttendanceAbsent, states[0].Submission.Attendance.Outcome)
}

func TestReconcileUnknownTraineeLeavesSeededStates(t *testing.T) {
	trainee := testTrainee()
	trainee.Email = ""
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC))}

	states := fixedRegister(t).Reconcile(attendanceModule(), rows, trainee, batchStart, batchEnd)
	// No attendance overlay at all, not a fabricated absence.
	assert.Nil(t, states)
}

func TestIngestRowsStoresValidatedRows(t *testing.T) {
	store := &registerStoreMock{}
	svc := NewRegisterService(store, nil, nil)

	inputs := []RegisterRowInput{{
		ModuleName:   "javascript",
		SprintNumber: 1,
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		Timestamp:    time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC),
		Region:       "London",
		RegisterURL:  "https://register.example.com/1",
	}}

	stored, err := svc.IngestRows(context.Background(), "itp", inputs)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "itp", store.inserted[0].CourseName)
	assert.Equal(t, models.Region("London"), store.inserted[0].Region)
}

func TestIngestRowsInvalidatesBatchSnapshots(t *testing.T) {
	invalidator := &invalidatorMock{}
	svc := NewRegisterService(&registerStoreMock{}, invalidator, nil)

	inputs := []RegisterRowInput{{
		ModuleName:   "javascript",
		SprintNumber: 1,
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		Timestamp:    time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC),
		Region:       "London",
	}}

	_, err := svc.IngestRows(context.Background(), "itp", inputs)
	require.NoError(t, err)
	assert.Equal(t, 1, invalidator.calls)
}

func TestIngestRowsToleratesInvalidationFailure(t *testing.T) {
	invalidator := &invalidatorMock{err: errors.New("redis down")}
	svc := NewRegisterService(&registerStoreMock{}, invalidator, nil)

	inputs := []RegisterRowInput{{
		ModuleName:   "javascript",
		SprintNumber: 1,
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		Timestamp:    time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC),
		Region:       "London",
	}}

	stored, err := svc.IngestRows(context.Background(), "itp", inputs)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
}

func TestIngestRowsRejectsInvalidRow(t *testing.T) {
	svc := NewRegisterService(&registerStoreMock{}, nil, nil)

	inputs := []RegisterRowInput{{
		ModuleName:   "javascript",
		SprintNumber: 21,
		Name:         "Jane Doe",
		Email:        "not-an-email",
		Timestamp:    time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC),
		Region:       "London",
	}}

	_, err := svc.IngestRows(context.Background(), "itp", inputs)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIngestRowsRejectsEmptyUpload(t *testing.T) {
	svc := NewRegisterService(&registerStoreMock{}, nil, nil)

	_, err := svc.IngestRows(context.Background(), "itp", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIngestRowsStoreFailure(t *testing.T) {
	svc := NewRegisterService(&registerStoreMock{insertErr: errors.New("boom")}, nil, nil)

	inputs := []RegisterRowInput{{
		ModuleName:   "javascript",
		SprintNumber: 1,
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		Timestamp:    time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC),
		Region:       "London",
	}}

	_, err := svc.IngestRows(context.Background(), "itp", inputs)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
