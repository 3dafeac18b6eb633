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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-tracker-api/api/swagger"
	"github.com/noah-isme/attendance-tracker-api/internal/handler"
	internalmiddleware "github.com/noah-isme/attendance-tracker-api/internal/middleware"
	"github.com/noah-isme/attendance-tracker-api/internal/repository"
	"github.com/noah-isme/attendance-tracker-api/internal/service"
	"github.com/noah-isme/attendance-tracker-api/pkg/cache"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	"github.com/noah-isme/attendance-tracker-api/pkg/config"
	"github.com/noah-isme/attendance-tracker-api/pkg/database"
	"github.com/noah-isme/attendance-tracker-api/pkg/jobs"
	"github.com/noah-isme/attendance-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-tracker-api/pkg/middleware/requestid"
)

// @title Attendance Tracker API
// @version 1.0.0
// @description Term timetables, generated class sessions and attendance statistics
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Calendar.Location()
	cal, err := calendar.FromSources(cfg.Calendar.Holidays, cfg.Calendar.HolidaysFile, loc)
	if err != nil {
		logr.Fatal("failed to build calendar", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, cfg.Database.MigrationsDir)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Strings("files", applied))
	}

	metricsSvc := service.NewMetricsService()

	healthChecks := map[string]handler.HealthCheck{"database": db}

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			healthChecks["redis"] = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	collectionRepo := repository.NewCollectionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	validate := validator.New()

	expander := service.NewSessionExpander(cal, collectionRepo, scheduleRepo, sessionRepo, cacheSvc, metricsSvc, logr)
	dispatcher := service.NewExpansionDispatcher(expander, metricsSvc, logr)
	expansionQueue := jobs.NewQueue("session-expansion", dispatcher.Handle, jobs.QueueConfig{
		Workers:    cfg.Expansion.Workers,
		BufferSize: cfg.Expansion.BufferSize,
		MaxRetries: cfg.Expansion.MaxRetries,
		Logger:     logr,
	})
	dispatcher.SetQueue(expansionQueue)
	if err := metricsSvc.RegisterQueueDepth(expansionQueue.Name(), expansionQueue.Pending); err != nil {
		logr.Warn("failed to register queue depth gauge", zap.Error(err))
	}
	expansionQueue.Start(ctx)

	exportSvc := service.NewExportService(logr, nil, nil)
	collectionSvc := service.NewCollectionService(collectionRepo, scheduleRepo, dispatcher, cacheSvc, validate, logr, cfg.Calendar.DefaultThreshold)
	courseSvc := service.NewCourseService(collectionRepo, courseRepo, scheduleRepo, dispatcher, validate, logr)
	attendanceSvc := service.NewAttendanceService(cal, collectionRepo, courseRepo, sessionRepo, scheduleRepo, cacheSvc, exportSvc, metricsSvc, validate, logr, service.AttendanceConfig{
		CacheTTL:       cfg.Stats.CacheTTL,
		ExportsEnabled: cfg.Exports.Enabled,
	})

	if cfg.MarkToday.At != "" {
		scheduler, err := service.NewMarkTodayScheduler(attendanceSvc, cfg.MarkToday.At, loc, logr)
		if err != nil {
			logr.Fatal("invalid MARK_TODAY_AT", zap.Error(err))
		}
		scheduler.Start(ctx)
	}

	collectionHandler := handler.NewCollectionHandler(collectionSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, healthChecks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/collections/shared", collectionHandler.ListShared)

	owned := api.Group("")
	owned.Use(internalmiddleware.Identity())
	{
		owned.POST("/collections", collectionHandler.Create)
		owned.GET("/collections", collectionHandler.List)
		owned.GET("/collections/:id", collectionHandler.Get)
		owned.PUT("/collections/:id", collectionHandler.Replace)
		owned.PATCH("/collections/:id/settings", collectionHandler.UpdateSettings)
		owned.DELETE("/collections/:id", collectionHandler.Delete)
		owned.POST("/collections/:id/clone", collectionHandler.Clone)
		owned.GET("/collections/:id/timetable", collectionHandler.Timetable)
		owned.GET("/collections/:id/stats", attendanceHandler.Stats)
		owned.GET("/collections/:id/day", attendanceHandler.Day)
		owned.GET("/collections/:id/export", attendanceHandler.Export)
		owned.POST("/collections/:id/courses", courseHandler.AddCourse)

		owned.POST("/courses/:id/schedules", courseHandler.AddSchedule)
		owned.GET("/courses/:id/sessions", attendanceHandler.ListSessions)
		owned.POST("/courses/:id/sessions", attendanceHandler.CreateSession)

		owned.PATCH("/sessions/:id", attendanceHandler.UpdateSession)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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
	expansionQueue.Stop()
}
