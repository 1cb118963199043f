package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CodeYourFuture/trainee-tracker/internal/handler"
	"github.com/CodeYourFuture/trainee-tracker/internal/middleware"
	"github.com/CodeYourFuture/trainee-tracker/internal/repository"
	"github.com/CodeYourFuture/trainee-tracker/internal/service"
	"github.com/CodeYourFuture/trainee-tracker/pkg/cache"
	"github.com/CodeYourFuture/trainee-tracker/pkg/config"
	"github.com/CodeYourFuture/trainee-tracker/pkg/database"
	"github.com/CodeYourFuture/trainee-tracker/pkg/jobs"
	"github.com/CodeYourFuture/trainee-tracker/pkg/logger"
	corsmiddleware "github.com/CodeYourFuture/trainee-tracker/pkg/middleware/cors"
	reqidmiddleware "github.com/CodeYourFuture/trainee-tracker/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedule, err := config.LoadSchedule(cfg.SchedulePath)
	if err != nil {
		logr.Fatal("failed to load schedule", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Run without the snapshot cache rather than refusing to start.
		logr.Warn("redis unavailable, batch snapshots will not be cached", zap.Error(err))
		redisClient = nil
	}

	githubRepo := repository.NewGithubRepository(ctx, cfg.GitHub.Token, cfg.GitHub.Org, logr)
	registerRepo := repository.NewRegisterRepository(db)
	traineeRepo := repository.NewTraineeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	scheduleSvc := service.NewScheduleService(githubRepo, logr)
	matcherSvc := service.NewMatcherService(logr)
	registerSvc := service.NewRegisterService(registerRepo, cacheRepo, logr)
	progressSvc := service.NewProgressService()
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret)
	trackerSvc := service.NewTrackerService(
		schedule, scheduleSvc, matcherSvc, registerSvc, progressSvc,
		githubRepo, traineeRepo, cacheRepo, metricsSvc, logr, cfg.Tracker,
	)

	progressHandler := handler.NewProgressHandler(trackerSvc)
	registerHandler := handler.NewRegisterHandler(registerSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/courses/:course/batches/:batch", progressHandler.Batch)
		api.GET("/courses/:course/batches/:batch/scores", progressHandler.Scores)
		api.GET("/courses/:course/batches/:batch/unknown-prs", progressHandler.UnknownPrs)
		api.GET("/courses/:course/batches/:batch/export", progressHandler.Export)
		api.POST("/courses/:course/register", registerHandler.Ingest)
	}

	var refreshQueue *jobs.Queue
	if cfg.Tracker.RefreshEnabled {
		refreshQueue = jobs.NewQueue(func(ctx context.Context, job jobs.RefreshJob) error {
			return trackerSvc.RefreshBatch(ctx, job.Course, job.Batch)
		}, jobs.QueueConfig{
			Workers:    2,
			MaxRetries: cfg.Tracker.RefreshRetries,
			Logger:     logr,
		})
		refreshQueue.Start(ctx)
		go refreshLoop(ctx, schedule, refreshQueue, cfg.Tracker.RefreshInterval, logr)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if refreshQueue != nil {
		refreshQueue.Stop()
	}
}

// refreshLoop periodically enqueues every scheduled batch for recomputation
// so cached snapshots stay warm.
func refreshLoop(ctx context.Context, schedule *config.Schedule, queue *jobs.Queue, interval time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, course := range schedule.Courses {
				for _, batch := range course.Batches {
					job := jobs.RefreshJob{Course: course.Name, Batch: batch.Name}
					if err := queue.Enqueue(job); err != nil {
						logr.Warn("failed to enqueue batch refresh",
							zap.String("course", course.Name),
							zap.String("batch", batch.Name),
							zap.Error(err))
					}
				}
			}
		}
	}
}
