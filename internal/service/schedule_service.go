package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	"github.com/CodeYourFuture/trainee-tracker/pkg/config"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
)

type issueSource interface {
	ListModuleIssues(ctx context.Context, module string) ([]models.Issue, error)
}

// ScheduleService merges the static course schedule with assignments parsed
// from curriculum issues into a Course -> Module -> Sprint -> Assignment
// tree.
type ScheduleService struct {
	issues issueSource
	logger *zap.Logger
}

// NewScheduleService constructs the schedule builder.
func NewScheduleService(issues issueSource, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{issues: issues, logger: logger}
}

// BuildCourse produces the full course tree for one batch. Every sprint is
// seeded with exactly one attendance assignment from the schedule dates,
// then the pull request assignments discovered in that module's issues are
// appended in title-sorted order. Module issue fetches fan out concurrently;
// assembly preserves module order.
func (s *ScheduleService) BuildCourse(ctx context.Context, courseName string, batch config.BatchSchedule) (*models.Course, error) {
	modules := make([]models.Module, 0, len(batch.Modules))
	for _, moduleSchedule := range batch.Modules {
		sprints := make([]models.Sprint, 0, len(moduleSchedule.Sprints))
		for _, sprintSchedule := range moduleSchedule.Sprints {
			dates := regionDates(sprintSchedule.Dates)
			sprints = append(sprints, models.Sprint{
				Assignments: []models.Assignment{models.NewAttendanceAssignment(dates)},
				Dates:       dates,
			})
		}
		modules = append(modules, models.Module{Name: moduleSchedule.Name, Sprints: sprints})
	}

	type moduleResult struct {
		assignments [][]models.Assignment
		err         error
	}
	results := make([]moduleResult, len(modules))
	var wg sync.WaitGroup
	for i := range modules {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assignments, err := s.moduleAssignments(ctx, modules[i].Name, len(modules[i].Sprints))
			results[i] = moduleResult{assignments: assignments, err: err}
		}(i)
	}
	wg.Wait()

	for i := range modules {
		if err := results[i].err; err != nil {
			return nil, err
		}
		for sprintIdx := range modules[i].Sprints {
			modules[i].Sprints[sprintIdx].Assignments = append(modules[i].Sprints[sprintIdx].Assignments, results[i].assignments[sprintIdx]...)
		}
	}

	return &models.Course{
		Name:      courseName,
		Modules:   modules,
		StartDate: batch.Start.Time,
		EndDate:   batch.End.Time,
	}, nil
}

// moduleAssignments fetches and parses one module's issues into per-sprint
// assignment lists. Issues are sorted by title first so the output is
// deterministic regardless of arrival order.
func (s *ScheduleService) moduleAssignments(ctx context.Context, moduleName string, sprintCount int) ([][]models.Assignment, error) {
	issues, err := s.issues.ListModuleIssues(ctx, moduleName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to fetch issues for module %s", moduleName))
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Title < issues[j].Title })

	sprints := make([][]models.Assignment, sprintCount)
	for _, issue := range issues {
		pairs, err := ParseIssue(issue)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCurriculum.Code, appErrors.ErrCurriculum.Status, err.Error())
		}
		for _, pair := range pairs {
			sprintIdx := pair.SprintNumber - 1
			if sprintIdx >= sprintCount {
				return nil, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("found issue %s in sprint %d but module %s only has %d sprints", issue.URL, pair.SprintNumber, moduleName, sprintCount))
			}
			if pair.Assignment != nil {
				sprints[sprintIdx] = append(sprints[sprintIdx], *pair.Assignment)
			}
		}
	}
	return sprints, nil
}

func regionDates(dates map[string]config.Date) map[models.Region]time.Time {
	converted := make(map[models.Region]time.Time, len(dates))
	for region, date := range dates {
		converted[models.Region(region)] = date.Time
	}
	return converted
}
