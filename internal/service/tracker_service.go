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

type pullRequestSource interface {
	ListModulePullRequests(ctx context.Context, module string) ([]models.Pr, error)
	ListTeamMembers(ctx context.Context, team string) ([]string, error)
}

type traineeDirectory interface {
	ListTrainees(ctx context.Context, courseName string) ([]models.Trainee, error)
}

type batchCache interface {
	GetBatch(ctx context.Context, key string) (*models.Batch, error)
	SetBatch(ctx context.Context, key string, batch *models.Batch, ttl time.Duration) error
}

// TrackerService computes batch snapshots: it builds the course tree, pulls
// the cohort's pull requests and register rows, matches them per trainee and
// caches the result. It is the orchestration layer above the pure engine
// services.
type TrackerService struct {
	schedule  *config.Schedule
	courses   *ScheduleService
	matcher   *MatcherService
	register  *RegisterService
	progress  *ProgressService
	github    pullRequestSource
	directory traineeDirectory
	cache     batchCache
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       config.TrackerConfig
}

// NewTrackerService constructs the tracker orchestrator. cache, directory
// and metrics may be nil; the tracker then recomputes every call and skips
// the affected concern.
func NewTrackerService(
	schedule *config.Schedule,
	courses *ScheduleService,
	matcher *MatcherService,
	register *RegisterService,
	progress *ProgressService,
	github pullRequestSource,
	directory traineeDirectory,
	cache batchCache,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.TrackerConfig,
) *TrackerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 4
	}
	return &TrackerService{
		schedule:  schedule,
		courses:   courses,
		matcher:   matcher,
		register:  register,
		progress:  progress,
		github:    github,
		directory: directory,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

func batchCacheKey(courseName, batchName string) string {
	return fmt.Sprintf("batch:%s:%s", courseName, batchName)
}

// Batch returns the matched batch snapshot, from cache when fresh.
func (s *TrackerService) Batch(ctx context.Context, courseName, batchName string) (*models.Batch, error) {
	key := batchCacheKey(courseName, batchName)
	if s.cache != nil {
		cached, err := s.cache.GetBatch(ctx, key)
		if err != nil {
			s.logger.Warn("batch cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	batch, err := s.ComputeBatch(ctx, courseName, batchName)
	if err != nil {
		return nil, err
	}
	s.storeBatch(ctx, key, batch)
	return batch, nil
}

// RefreshBatch recomputes the snapshot and overwrites the cache entry. Used
// by the background refresh queue.
func (s *TrackerService) RefreshBatch(ctx context.Context, courseName, batchName string) error {
	batch, err := s.ComputeBatch(ctx, courseName, batchName)
	if err != nil {
		return err
	}
	s.storeBatch(ctx, batchCacheKey(courseName, batchName), batch)
	return nil
}

func (s *TrackerService) storeBatch(ctx context.Context, key string, batch *models.Batch) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetBatch(ctx, key, batch, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("batch cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// ComputeBatch builds the snapshot from scratch: course tree, team roster,
// per-module pull requests and register rows, then one matching pass per
// trainee and module.
func (s *TrackerService) ComputeBatch(ctx context.Context, courseName, batchName string) (*models.Batch, error) {
	started := time.Now()

	courseSchedule := s.schedule.Course(courseName)
	if courseSchedule == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s is not in the schedule", courseName))
	}
	batchSchedule := courseSchedule.Batch(batchName)
	if batchSchedule == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("batch %s of course %s is not in the schedule", batchName, courseName))
	}

	course, err := s.courses.BuildCourse(ctx, courseName, *batchSchedule)
	if err != nil {
		return nil, err
	}

	// The GitHub team shares its name with the batch.
	members, err := s.github.ListTeamMembers(ctx, batchName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list members of team %s", batchName))
	}
	sort.Strings(members)

	trainees := s.traineesByLogin(ctx, courseName)

	moduleData, err := s.fetchModuleData(ctx, courseName, course.Modules)
	if err != nil {
		return nil, err
	}

	batch := &models.Batch{Name: batchName, Trainees: make([]models.TraineeWithSubmissions, 0, len(members))}
	for _, member := range members {
		trainee, ok := trainees[models.NormalizeLogin(member)]
		if !ok {
			trainee = models.Trainee{GithubLogin: member, Region: models.RegionUnknown}
		}

		modules := make([]models.ModuleWithSubmissions, 0, len(course.Modules))
		for moduleIdx, module := range course.Modules {
			data := moduleData[moduleIdx]
			attendance := s.register.Reconcile(module, data.registerRows, trainee, course.StartDate, course.EndDate)
			matched, err := s.matcher.MatchModule(module, data.prsByAuthor[models.NormalizeLogin(member)], attendance, trainee.Region)
			if err != nil {
				return nil, err
			}
			modules = append(modules, *matched)
		}
		batch.Trainees = append(batch.Trainees, models.TraineeWithSubmissions{Trainee: trainee, Modules: modules})
	}

	s.metrics.ObserveBatchBuild(time.Since(started))
	s.logger.Info("batch snapshot computed",
		zap.String("course", courseName),
		zap.String("batch", batchName),
		zap.Int("trainees", len(batch.Trainees)),
		zap.Duration("took", time.Since(started)))
	return batch, nil
}

// Scores returns the per-trainee progress summary for a batch.
func (s *TrackerService) Scores(ctx context.Context, courseName, batchName string) ([]models.TraineeScore, error) {
	batch, err := s.Batch(ctx, courseName, batchName)
	if err != nil {
		return nil, err
	}
	scores := make([]models.TraineeScore, 0, len(batch.Trainees))
	for _, trainee := range batch.Trainees {
		scores = append(scores, models.TraineeScore{
			Trainee:    trainee.Trainee,
			Score:      s.progress.Score(trainee),
			Status:     s.progress.Status(trainee),
			Attendance: s.progress.AttendanceFraction(trainee),
		})
	}
	return scores, nil
}

// UnknownPrs returns every open pull request in the batch that matched no
// assignment slot.
func (s *TrackerService) UnknownPrs(ctx context.Context, courseName, batchName string) ([]models.Pr, error) {
	batch, err := s.Batch(ctx, courseName, batchName)
	if err != nil {
		return nil, err
	}
	return batch.UnknownPrs(), nil
}

func (s *TrackerService) traineesByLogin(ctx context.Context, courseName string) map[string]models.Trainee {
	byLogin := make(map[string]models.Trainee)
	if s.directory == nil {
		return byLogin
	}
	trainees, err := s.directory.ListTrainees(ctx, courseName)
	if err != nil {
		// A missing directory degrades regions to unknown rather than
		// failing the batch.
		s.logger.Warn("trainee directory unavailable", zap.String("course", courseName), zap.Error(err))
		return byLogin
	}
	for _, trainee := range trainees {
		byLogin[models.NormalizeLogin(trainee.GithubLogin)] = trainee
	}
	return byLogin
}

type moduleFetch struct {
	prsByAuthor  map[string][]models.Pr
	registerRows []models.RegisterRow
}

// fetchModuleData pulls each module's pull requests and register rows, at
// most FetchWorkers modules in flight at once.
func (s *TrackerService) fetchModuleData(ctx context.Context, courseName string, modules []models.Module) ([]moduleFetch, error) {
	results := make([]moduleFetch, len(modules))
	errs := make([]error, len(modules))
	sem := make(chan struct{}, s.cfg.FetchWorkers)
	var wg sync.WaitGroup
	for i := range modules {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchStart := time.Now()
			prs, err := s.github.ListModulePullRequests(ctx, modules[i].Name)
			s.metrics.ObserveGitHubFetch("pull_requests", time.Since(fetchStart))
			if err != nil {
				errs[i] = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to fetch pull requests for module %s", modules[i].Name))
				return
			}
			byAuthor := make(map[string][]models.Pr)
			for _, pr := range prs {
				login := models.NormalizeLogin(pr.Author)
				byAuthor[login] = append(byAuthor[login], pr)
			}

			rows, err := s.register.ModuleRows(ctx, courseName, modules[i].Name)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = moduleFetch{prsByAuthor: byAuthor, registerRows: rows}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
