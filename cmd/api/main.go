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

	"github.com/chronoslab/timetabler/internal/constraint"
	"github.com/chronoslab/timetabler/internal/handler"
	"github.com/chronoslab/timetabler/internal/middleware"
	"github.com/chronoslab/timetabler/internal/repository"
	"github.com/chronoslab/timetabler/internal/service"
	"github.com/chronoslab/timetabler/pkg/cache"
	"github.com/chronoslab/timetabler/pkg/config"
	"github.com/chronoslab/timetabler/pkg/database"
	"github.com/chronoslab/timetabler/pkg/jobs"
	"github.com/chronoslab/timetabler/pkg/logger"
	corsmiddleware "github.com/chronoslab/timetabler/pkg/middleware/cors"
	reqidmiddleware "github.com/chronoslab/timetabler/pkg/middleware/requestid"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	resultRepo := repository.NewTimetableResultRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	checker := constraint.NewChecker(logr)

	// The persist queue and the timetable service reference each other,
	// so the handler is bound through a late closure.
	var timetableSvc *service.TimetableService
	queue := jobs.NewQueue("persist", func(ctx context.Context, job jobs.Job) error {
		return timetableSvc.HandlePersistJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    2,
		BufferSize: cfg.Results.PersistQueue,
		MaxRetries: cfg.Results.PersistRetry,
		RetryDelay: cfg.Results.PersistDelay,
		Logger:     logr,
	})

	timetableSvc = service.NewTimetableService(
		resultRepo, institutionRepo, cacheRepo, queue,
		checker, metricsSvc, cfg.Optimizer, cfg.Results.CacheTTL, logr,
	)
	institutionSvc := service.NewInstitutionService(institutionRepo, resultRepo, cacheRepo, logr)
	exportSvc := service.NewExportService(timetableSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)
	institutionHandler := handler.NewInstitutionHandler(institutionSvc)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetables/generate", timetableHandler.Generate)
		api.POST("/timetables/validate", timetableHandler.Validate)
		api.GET("/timetables/:institutionId", timetableHandler.Latest)
		api.GET("/timetables/:institutionId/history", timetableHandler.History)
		if cfg.Results.ExportEnabled {
			api.GET("/timetables/:institutionId/export", timetableHandler.Export)
		}

		api.POST("/institutions", institutionHandler.Create)
		api.GET("/institutions", institutionHandler.List)
		api.GET("/institutions/:id", institutionHandler.Get)
		api.PUT("/institutions/:id", institutionHandler.Update)
		api.DELETE("/institutions/:id", institutionHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
