package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/repository"
	"github.com/noah-isme/attendance-tracker-api/internal/service"
	"github.com/noah-isme/attendance-tracker-api/pkg/cache"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	"github.com/noah-isme/attendance-tracker-api/pkg/config"
	"github.com/noah-isme/attendance-tracker-api/pkg/database"
	"github.com/noah-isme/attendance-tracker-api/pkg/logger"
)

// mark-today creates a present session for every course scheduled on the
// current working day. Intended for cron; it is safe to run more than once.
func main() {
	date := flag.String("date", "", "mark this date (YYYY-MM-DD) instead of today")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	loc := cfg.Calendar.Location()
	cal, err := calendar.FromSources(cfg.Calendar.Holidays, cfg.Calendar.HolidaysFile, loc)
	if err != nil {
		logr.Fatal("failed to build calendar", zap.Error(err))
	}

	now := time.Now().In(loc)
	if *date != "" {
		parsed, err := calendar.ParseDate(*date)
		if err != nil {
			logr.Fatal("invalid --date", zap.Error(err))
		}
		now = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 12, 0, 0, 0, loc)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		if redisClient, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
			logr.Warn("redis unavailable, cached statistics will expire by TTL", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, nil, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	collectionRepo := repository.NewCollectionRepository(db)
	attendanceSvc := service.NewAttendanceService(
		cal,
		collectionRepo,
		repository.NewCourseRepository(db),
		repository.NewSessionRepository(db),
		repository.NewScheduleRepository(db),
		cacheSvc,
		nil,
		nil,
		validator.New(),
		logr,
		service.AttendanceConfig{CacheTTL: cfg.Stats.CacheTTL},
	)

	result, err := attendanceSvc.MarkToday(ctx, now)
	if err != nil {
		logr.Error("mark-today failed", zap.Error(err))
		os.Exit(1)
	}
	logr.Info("mark-today finished",
		zap.String("date", calendar.FormatDate(result.Date)),
		zap.Bool("skipped", result.Skipped),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("inserted", result.Inserted),
	)
}
