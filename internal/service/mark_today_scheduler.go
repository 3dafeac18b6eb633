package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
)

type todayMarker interface {
	MarkToday(ctx context.Context, now time.Time) (*dto.MarkTodayResult, error)
}

// MarkTodayScheduler runs MarkToday once a day at a fixed wall-clock time.
type MarkTodayScheduler struct {
	marker todayMarker
	hour   int
	minute int
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewMarkTodayScheduler parses at as HH:MM in loc.
func NewMarkTodayScheduler(marker todayMarker, at string, loc *time.Location, logger *zap.Logger) (*MarkTodayScheduler, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("parse mark-today time %q: %w", at, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkTodayScheduler{
		marker: marker,
		hour:   parsed.Hour(),
		minute: parsed.Minute(),
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}, nil
}

// NextRun returns the first trigger instant strictly after now.
func (s *MarkTodayScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start boots the scheduling goroutine. It exits when ctx is cancelled.
func (s *MarkTodayScheduler) Start(ctx context.Context) {
	go func() {
		for {
			next := s.NextRun(s.now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce(ctx)
			}
		}
	}()
	s.logger.Info("mark-today scheduler started", zap.String("next_run", s.NextRun(s.now()).Format(time.RFC3339)))
}

func (s *MarkTodayScheduler) runOnce(ctx context.Context) {
	result, err := s.marker.MarkToday(ctx, s.now())
	if err != nil {
		s.logger.Error("mark-today failed", zap.Error(err))
		return
	}
	s.logger.Info("mark-today finished",
		zap.Time("date", result.Date),
		zap.Bool("skipped", result.Skipped),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("inserted", result.Inserted),
	)
}
