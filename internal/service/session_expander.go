package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

// DayIterator yields calendar days in ascending order.
type DayIterator interface {
	Next() (time.Time, bool)
}

// ExpandSessions materialises a present session for every working day that
// matches a rule's weekday. Pairs present in existing, or already emitted, are skipped.
func ExpandSessions(days DayIterator, rules []models.ScheduleRule, existing map[models.SessionKey]struct{}) []models.Session {
	var sessions []models.Session
	if len(rules) == 0 {
		return sessions
	}
	seen := make(map[models.SessionKey]struct{}, len(existing))
	for k := range existing {
		seen[k] = struct{}{}
	}
	for day, ok := days.Next(); ok; day, ok = days.Next() {
		weekday := calendar.WeekdayIndex(day)
		for _, rule := range rules {
			if int(rule.DayOfWeek)-1 != weekday {
				continue
			}
			key := models.NewSessionKey(rule.CourseID, day)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sessions = append(sessions, models.Session{CourseID: rule.CourseID, Date: day, Status: models.SessionStatusPresent})
		}
	}
	return sessions
}

type expansionCollectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
}

type expansionRuleReader interface {
	ListRulesByCollection(ctx context.Context, collectionID string) ([]models.ScheduleRule, error)
	FindRule(ctx context.Context, scheduleID string) (*models.ScheduleRule, error)
}

type expansionSessionWriter interface {
	ExistingKeys(ctx context.Context, courseIDs []string, from, to time.Time) (map[models.SessionKey]struct{}, error)
	BulkInsert(ctx context.Context, sessions []models.Session) (int, error)
}

type collectionInvalidator interface {
	InvalidateCollection(ctx context.Context, collectionID string)
}

// SessionExpander turns weekly schedules into dated sessions.
type SessionExpander struct {
	calendar    *calendar.Calendar
	collections expansionCollectionReader
	rules       expansionRuleReader
	sessions    expansionSessionWriter
	stats       collectionInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSessionExpander constructs the expander.
func NewSessionExpander(cal *calendar.Calendar, collections expansionCollectionReader, rules expansionRuleReader, sessions expansionSessionWriter, stats collectionInvalidator, metrics *MetricsService, logger *zap.Logger) *SessionExpander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionExpander{
		calendar:    cal,
		collections: collections,
		rules:       rules,
		sessions:    sessions,
		stats:       stats,
		metrics:     metrics,
		logger:      logger,
	}
}

// ExpandAll creates sessions for every schedule of the collection in [start, end].
func (e *SessionExpander) ExpandAll(ctx context.Context, collectionID string, start, end time.Time) (int, error) {
	if _, err := e.collections.FindByID(ctx, collectionID); err != nil {
		return 0, appErrors.Storage(err, "collection", "load")
	}
	rules, err := e.rules.ListRulesByCollection(ctx, collectionID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	return e.expand(ctx, collectionID, rules, start, end)
}

// ExpandOne creates sessions for a single schedule in [start, end].
func (e *SessionExpander) ExpandOne(ctx context.Context, scheduleID string, start, end time.Time) (int, error) {
	rule, err := e.rules.FindRule(ctx, scheduleID)
	if err != nil {
		return 0, appErrors.Storage(err, "schedule", "load")
	}
	return e.expand(ctx, rule.CollectionID, []models.ScheduleRule{*rule}, start, end)
}

func (e *SessionExpander) expand(ctx context.Context, collectionID string, rules []models.ScheduleRule, start, end time.Time) (int, error) {
	start, end = e.calendar.Day(start), e.calendar.Day(end)
	if len(rules) == 0 || start.After(end) {
		return 0, nil
	}
	courseIDs := uniqueCourseIDs(rules)
	existing, err := e.sessions.ExistingKeys(ctx, courseIDs, start, end)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing sessions")
	}
	pending := ExpandSessions(e.calendar.WorkingDays(start, end), rules, existing)
	if len(pending) == 0 {
		return 0, nil
	}
	inserted, err := e.sessions.BulkInsert(ctx, pending)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert sessions")
	}
	e.metrics.AddSessionsExpanded(inserted)
	if inserted > 0 && e.stats != nil {
		e.stats.InvalidateCollection(ctx, collectionID)
	}
	e.logger.Info("sessions expanded",
		zap.String("collection_id", collectionID),
		zap.Int("rules", len(rules)),
		zap.Int("pending", len(pending)),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}

func uniqueCourseIDs(rules []models.ScheduleRule) []string {
	seen := make(map[string]struct{}, len(rules))
	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		if _, ok := seen[rule.CourseID]; ok {
			continue
		}
		seen[rule.CourseID] = struct{}{}
		ids = append(ids, rule.CourseID)
	}
	return ids
}
