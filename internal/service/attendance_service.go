package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

type attendanceCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByCollection(ctx context.Context, collectionID string) ([]models.Course, error)
}

type attendanceSessionStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Session, error)
	ListByCollection(ctx context.Context, collectionID string) ([]models.Session, error)
	ListForDay(ctx context.Context, collectionID string, date time.Time) ([]models.DaySession, error)
	FindOwned(ctx context.Context, id string) (*models.SessionOwner, error)
	ExistingKeys(ctx context.Context, courseIDs []string, from, to time.Time) (map[models.SessionKey]struct{}, error)
	BulkInsert(ctx context.Context, sessions []models.Session) (int, error)
	CreateIfAbsent(ctx context.Context, session *models.Session) (*models.Session, bool, error)
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) (*models.Session, error)
}

type dayRuleReader interface {
	ListRulesForDay(ctx context.Context, day models.DayOfWeek, date time.Time) ([]models.ScheduleRule, error)
}

type statsCache interface {
	StatsGeneration(ctx context.Context, collectionID string) (int64, bool)
	LoadStats(ctx context.Context, collectionID, day string, generation int64) (*dto.StatsResponse, bool)
	StoreStats(ctx context.Context, stats *dto.StatsResponse, generation int64, ttl time.Duration)
	InvalidateCollection(ctx context.Context, collectionID string)
}

type statsRenderer interface {
	Render(stats *dto.StatsResponse, title string, format dto.ExportFormat) (*dto.ExportFile, error)
}

// AttendanceConfig tunes the attendance service.
type AttendanceConfig struct {
	CacheTTL       time.Duration
	ExportsEnabled bool
}

// AttendanceService reads and writes sessions and reports statistics.
type AttendanceService struct {
	calendar    *calendar.Calendar
	collections collectionFinder
	courses     attendanceCourseReader
	sessions    attendanceSessionStore
	rules       dayRuleReader
	cache       statsCache
	exporter    statsRenderer
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         AttendanceConfig
	now         func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(cal *calendar.Calendar, collections collectionFinder, courses attendanceCourseReader, sessions attendanceSessionStore, rules dayRuleReader, cache statsCache, exporter statsRenderer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AttendanceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{
		calendar:    cal,
		collections: collections,
		courses:     courses,
		sessions:    sessions,
		rules:       rules,
		cache:       cache,
		exporter:    exporter,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
	RegisterSessionStatusValidation(svc.validator)
	return svc
}

// RegisterSessionStatusValidation adds the session_status tag to a validator.
func RegisterSessionStatusValidation(v *validator.Validate) {
	_ = v.RegisterValidation("session_status", func(fl validator.FieldLevel) bool {
		return models.SessionStatus(strings.ToLower(fl.Field().String())).Valid()
	})
}

// WithClock overrides the time source.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	if now != nil {
		s.now = now
	}
	return s
}

// Stats returns per-course percentage and remaining bunks for a collection.
func (s *AttendanceService) Stats(ctx context.Context, ownerID, collectionID string) (*dto.StatsResponse, error) {
	collection, err := ownedCollection(ctx, s.collections, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	today := s.calendar.Today(s.now())
	asOf := calendar.FormatDate(today)

	// The generation is read before loading so a write that invalidates
	// while the snapshot is computed leaves the store unreachable.
	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		generation, cacheable = s.cache.StatsGeneration(ctx, collection.ID)
	}
	if cacheable {
		if cached, ok := s.cache.LoadStats(ctx, collection.ID, asOf, generation); ok {
			return cached, nil
		}
	}

	courses, err := s.courses.ListByCollection(ctx, collection.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	sessions, err := s.sessions.ListByCollection(ctx, collection.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	resp := &dto.StatsResponse{
		CollectionID: collection.ID,
		Threshold:    collection.Threshold,
		AsOf:         asOf,
		Courses:      ComputeCollectionStats(courses, sessions, collection.Threshold, today),
	}
	if cacheable {
		s.cache.StoreStats(ctx, resp, generation, s.cfg.CacheTTL)
	}
	return resp, nil
}

// DayView lists the courses held on a date with their session status.
func (s *AttendanceService) DayView(ctx context.Context, ownerID, collectionID, rawDate string) (*dto.DayViewResponse, error) {
	date, err := calendar.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	collection, err := ownedCollection(ctx, s.collections, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.sessions.ListForDay(ctx, collection.ID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	if rows == nil {
		rows = []models.DaySession{}
	}
	return &dto.DayViewResponse{CollectionID: collection.ID, Date: calendar.FormatDate(date), Sessions: rows}, nil
}

// UpdateStatus moves a session to any of the three statuses.
func (s *AttendanceService) UpdateStatus(ctx context.Context, ownerID, sessionID string, req dto.UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, statusValidationError(err)
	}
	owned, err := s.sessions.FindOwned(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Storage(err, "session", "load")
	}
	if owned.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	updated, err := s.sessions.UpdateStatus(ctx, sessionID, models.SessionStatus(strings.ToLower(req.Status)))
	if err != nil {
		return nil, appErrors.Storage(err, "session", "update")
	}
	s.invalidate(ctx, owned.CollectionID)
	return updated, nil
}

// CreateSession adds a session by hand. An existing session for the same course
// and date is returned untouched with Created=false.
func (s *AttendanceService) CreateSession(ctx context.Context, ownerID, courseID string, req dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, statusValidationError(err)
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	course, collection, err := findOwnedCourse(ctx, s.courses, s.collections, ownerID, courseID)
	if err != nil {
		return nil, err
	}
	status := models.SessionStatusPresent
	if req.Status != "" {
		status = models.SessionStatus(strings.ToLower(req.Status))
	}
	stored, created, err := s.sessions.CreateIfAbsent(ctx, &models.Session{CourseID: course.ID, Date: date, Status: status})
	if err != nil {
		return nil, appErrors.Storage(err, "session", "create")
	}
	if created {
		s.invalidate(ctx, collection.ID)
	}
	return &dto.CreateSessionResponse{Session: *stored, Created: created}, nil
}

// ListCourseSessions returns every session of an owned course.
func (s *AttendanceService) ListCourseSessions(ctx context.Context, ownerID, courseID string) ([]models.Session, error) {
	course, _, err := findOwnedCourse(ctx, s.courses, s.collections, ownerID, courseID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// MarkToday ensures a present session exists for every schedule meeting today
// in a collection whose range contains today. Weekends and holidays are skipped.
func (s *AttendanceService) MarkToday(ctx context.Context, now time.Time) (*dto.MarkTodayResult, error) {
	today := s.calendar.Today(now)
	result := &dto.MarkTodayResult{Date: today}
	if !s.calendar.IsWorkingDay(today) {
		result.Skipped = true
		s.logger.Info("mark today skipped", zap.String("date", calendar.FormatDate(today)))
		return result, nil
	}
	day := models.DayOfWeek(calendar.WeekdayIndex(today) + 1)
	rules, err := s.rules.ListRulesForDay(ctx, day, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	result.Scheduled = len(rules)
	if len(rules) == 0 {
		return result, nil
	}
	existing, err := s.sessions.ExistingKeys(ctx, uniqueCourseIDs(rules), today, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing sessions")
	}
	pending := ExpandSessions(s.calendar.WorkingDays(today, today), rules, existing)
	inserted, err := s.sessions.BulkInsert(ctx, pending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark sessions")
	}
	result.Inserted = inserted
	s.metrics.AddSessionsMarked(inserted)
	if inserted > 0 {
		touched := make(map[string]struct{})
		for _, rule := range rules {
			if _, ok := touched[rule.CollectionID]; ok {
				continue
			}
			touched[rule.CollectionID] = struct{}{}
			s.invalidate(ctx, rule.CollectionID)
		}
	}
	s.logger.Info("mark today finished",
		zap.String("date", calendar.FormatDate(today)),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("inserted", inserted),
	)
	return result, nil
}

// Export renders the statistics of a collection as CSV or PDF.
func (s *AttendanceService) Export(ctx context.Context, ownerID, collectionID string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if !s.cfg.ExportsEnabled || s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled")
	}
	format = dto.ExportFormat(strings.ToLower(string(format)))
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	collection, err := ownedCollection(ctx, s.collections, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Render(stats, collection.Name, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

func (s *AttendanceService) invalidate(ctx context.Context, collectionID string) {
	if s.cache != nil {
		s.cache.InvalidateCollection(ctx, collectionID)
	}
}

func statusValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "session_status" {
				return appErrors.ErrInvalidStatus
			}
		}
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
