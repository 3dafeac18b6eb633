package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	CreateWithSchedule(ctx context.Context, course *models.Course, schedule *models.Schedule) error
}

type scheduleWriter interface {
	Create(ctx context.Context, schedule *models.Schedule) error
}

// CourseService adds courses and weekly slots to existing collections.
type CourseService struct {
	collections collectionFinder
	courses     courseStore
	schedules   scheduleWriter
	expansion   expansionEnqueuer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(collections collectionFinder, courses courseStore, schedules scheduleWriter, expansion expansionEnqueuer, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		collections: collections,
		courses:     courses,
		schedules:   schedules,
		expansion:   expansion,
		validator:   validate,
		logger:      logger,
	}
}

// AddCourse creates a course with its first weekly slot and expands it over the collection range.
func (s *CourseService) AddCourse(ctx context.Context, ownerID, collectionID string, req dto.AddCourseRequest) (*dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	collection, err := ownedCollection(ctx, s.collections, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	course := &models.Course{CollectionID: collection.ID, Name: req.Name}
	schedule := &models.Schedule{DayOfWeek: models.DayOfWeek(req.DayOfWeek), Order: req.Order}
	if err := s.courses.CreateWithSchedule(ctx, course, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.scheduleExpandOne(collection, schedule.ID)
	return &dto.CourseResponse{Course: *course, Schedule: *schedule}, nil
}

// AddSchedule adds another weekly slot to a course.
func (s *CourseService) AddSchedule(ctx context.Context, ownerID, courseID string, req dto.ScheduleRequest) (*dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	course, collection, err := s.ownedCourse(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}
	schedule := &models.Schedule{CourseID: course.ID, DayOfWeek: models.DayOfWeek(req.DayOfWeek), Order: req.Order}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.scheduleExpandOne(collection, schedule.ID)
	return &dto.CourseResponse{Course: *course, Schedule: *schedule}, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, ownerID, courseID string) (*models.Course, *models.Collection, error) {
	return findOwnedCourse(ctx, s.courses, s.collections, ownerID, courseID)
}

func (s *CourseService) scheduleExpandOne(collection *models.Collection, scheduleID string) {
	if err := s.expansion.EnqueueExpandOne(scheduleID, collection.StartDate, collection.EndDate); err != nil {
		s.logger.Error("failed to enqueue schedule expansion", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

func findOwnedCourse(ctx context.Context, courses courseFinder, collections collectionFinder, ownerID, courseID string) (*models.Course, *models.Collection, error) {
	course, err := courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "course", "load")
	}
	collection, err := ownedCollection(ctx, collections, ownerID, course.CollectionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, err
	}
	return course, collection, nil
}
