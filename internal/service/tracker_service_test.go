package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	"github.com/CodeYourFuture/trainee-tracker/pkg/config"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
)

type githubMock struct {
	members     []string
	prs         map[string][]models.Pr
	memberCalls int
}

func (m *githubMock) ListModulePullRequests(ctx context.Context, module string) ([]models.Pr, error) {
	return m.prs[module], nil
}

func (m *githubMock) ListTeamMembers(ctx context.Context, team string) ([]string, error) {
	m.memberCalls++
	return m.members, nil
}

type directoryMock struct {
	trainees []models.Trainee
}

func (m *directoryMock) ListTrainees(ctx context.Context, courseName string) ([]models.Trainee, error) {
	return m.trainees, nil
}

type cacheMock struct {
	stored map[string]*models.Batch
}

func (m *cacheMock) GetBatch(ctx context.Context, key string) (*models.Batch, error) {
	return m.stored[key], nil
}

func (m *cacheMock) SetBatch(ctx context.Context, key string, batch *models.Batch, ttl time.Duration) error {
	if m.stored == nil {
		m.stored = map[string]*models.Batch{}
	}
	m.stored[key] = batch
	return nil
}

func testSchedule() *config.Schedule {
	return &config.Schedule{
		Courses: []config.CourseSchedule{
			{Name: "itp", Batches: []config.BatchSchedule{testBatchSchedule()}},
		},
	}
}

func newTestTracker(t *testing.T, github *githubMock, cache batchCache, registerRows []models.RegisterRow) *TrackerService {
	t.Helper()

	fixedNow := func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }

	issues := &issueSourceMock{issues: map[string][]models.Issue{
		"javascript": {curriculumIssue(1, "Alarm clock", "1")},
	}}

	matcher := NewMatcherService(nil)
	matcher.now = fixedNow
	register := NewRegisterService(&registerStoreMock{rows: registerRows}, nil, nil)
	register.now = fixedNow

	directory := &directoryMock{trainees: []models.Trainee{
		{GithubLogin: "janedoe", Name: "Jane Doe", Email: "jane@example.com", Region: "London"},
	}}

	return NewTrackerService(
		testSchedule(),
		NewScheduleService(issues, nil),
		matcher,
		register,
		NewProgressService(),
		github,
		directory,
		cache,
		nil,
		nil,
		config.TrackerConfig{CacheTTL: time.Minute, FetchWorkers: 2},
	)
}

func TestComputeBatchEndToEnd(t *testing.T) {
	github := &githubMock{
		members: []string{"JaneDoe"},
		prs: map[string][]models.Pr{
			"javascript": {{
				RepoName: "javascript",
				Number:   7,
				Title:    "Jane | alarm clock",
				Author:   "JaneDoe",
				State:    models.PrStateComplete,
			}},
		},
	}
	rows := []models.RegisterRow{registerRow(1, time.Date(2025, 3, 5, 9, 55, 0, 0, time.UTC))}
	tracker := newTestTracker(t, github, nil, rows)

	batch, err := tracker.ComputeBatch(context.Background(), "itp", "March-2025")
	require.NoError(t, err)
	assert.Equal(t, "March-2025", batch.Name)
	require.Len(t, batch.Trainees, 1)

	trainee := batch.Trainees[0]
	assert.Equal(t, "janedoe", trainee.Trainee.GithubLogin)
	assert.Equal(t, models.Region("London"), trainee.Trainee.Region)

	require.Len(t, trainee.Modules, 1)
	sprintOne := trainee.Modules[0].Sprints[0].Submissions
	require.Len(t, sprintOne, 2)
	require.True(t, sprintOne[0].IsSubmitted())
	assert.Equal(t, models.AttendanceOnTime, sprintOne[0].Submission.Attendance.Outcome)
	require.True(t, sprintOne[1].IsSubmitted())
	assert.Equal(t, 7, sprintOne[1].Submission.PullRequest.Number)

	sprintTwo := trainee.Modules[0].Sprints[1].Submissions
	require.Len(t, sprintTwo, 1)
	assert.Equal(t, models.SubmissionMissingButNotExpected, sprintTwo[0].Status)
}

func TestComputeBatchUnknownCourse(t *testing.T) {
	tracker := newTestTracker(t, &githubMock{}, nil, nil)

	_, err := tracker.ComputeBatch(context.Background(), "missing", "March-2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestComputeBatchUnknownBatch(t *testing.T) {
	tracker := newTestTracker(t, &githubMock{}, nil, nil)

	_, err := tracker.ComputeBatch(context.Background(), "itp", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestComputeBatchMemberMissingFromDirectory(t *testing.T) {
	github := &githubMock{members: []string{"stranger"}}
	tracker := newTestTracker(t, github, nil, nil)

	batch, err := tracker.ComputeBatch(context.Background(), "itp", "March-2025")
	require.NoError(t, err)
	require.Len(t, batch.Trainees, 1)
	assert.Equal(t, "stranger", batch.Trainees[0].Trainee.GithubLogin)
	assert.Equal(t, models.RegionUnknown, batch.Trainees[0].Trainee.Region)

	// With no directory entry there is no register overlay: the unknown
	// region makes every sprint past, so the seeded expectation stands
	// rather than a fabricated absence.
	sprintOne := batch.Trainees[0].Modules[0].Sprints[0].Submissions
	require.NotEmpty(t, sprintOne)
	assert.Equal(t, models.SubmissionMissingButExpected, sprintOne[0].Status)
	assert.Equal(t, models.AssignmentAttendance, sprintOne[0].Assignment.Kind)
}

func TestBatchUsesCache(t *testing.T) {
	github := &githubMock{members: []string{"JaneDoe"}}
	cache := &cacheMock{}
	tracker := newTestTracker(t, github, cache, nil)

	first, err := tracker.Batch(context.Background(), "itp", "March-2025")
	require.NoError(t, err)
	require.Equal(t, 1, github.memberCalls)

	second, err := tracker.Batch(context.Background(), "itp", "March-2025")
	require.NoError(t, err)
	// Served from cache, no second computation.
	assert.Equal(t, 1, github.memberCalls)
	assert.Equal(t, first.Name, second.Name)
}

func TestRefreshBatchOverwritesCache(t *testing.T) {
	github := &githubMock{members: []string{"JaneDoe"}}
	cache := &cacheMock{}
	tracker := newTestTracker(t, github, cache, nil)

	require.NoError(t, tracker.RefreshBatch(context.Background(), "itp", "March-2025"))
	assert.Equal(t, 1, github.memberCalls)
	require.NotNil(t, cache.stored[batchCacheKey("itp", "March-2025")])

	// A refresh recomputes even with a warm cache.
	require.NoError(t, tracker.RefreshBatch(context.Background(), "itp", "March-2025"))
	assert.Equal(t, 2, github.memberCalls)
}

func TestScoresAndUnknownPrs(t *testing.T) {
	github := &githubMock{
		members: []string{"JaneDoe"},
		prs: map[string][]models.Pr{
			"javascript": {{
				RepoName: "javascript",
				Number:   9,
				Title:    "no resemblance whatsoever",
				Author:   "JaneDoe",
				State:    models.PrStateUnknown,
			}},
		},
	}
	tracker := newTestTracker(t, github, nil, nil)

	scores, err := tracker.Scores(context.Background(), "itp", "March-2025")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "janedoe", scores[0].Trainee.GithubLogin)
	assert.Equal(t, models.StatusAtRisk, scores[0].Status)

	unknown, err := tracker.UnknownPrs(context.Background(), "itp", "March-2025")
	require.NoError(t, err)
	require.Len(t, unknown, 1)
	assert.Equal(t, 9, unknown[0].Number)
}
