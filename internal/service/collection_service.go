package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

type collectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
	ListByOwner(ctx context.Context, ownerID string, page, size int) ([]models.Collection, int, error)
	ListShared(ctx context.Context, page, size int) ([]models.Collection, int, error)
	LoadTree(ctx context.Context, id string) (*models.CollectionTree, error)
	CreateTree(ctx context.Context, tree *models.CollectionTree) error
	ReplaceTree(ctx context.Context, tree *models.CollectionTree) error
	UpdateSettings(ctx context.Context, c *models.Collection) error
	Delete(ctx context.Context, id string) error
}

type timetableReader interface {
	ListTimetable(ctx context.Context, collectionID string) ([]models.TimetableSlot, error)
}

type expansionEnqueuer interface {
	EnqueueExpandAll(collectionID string, start, end time.Time) error
	EnqueueExpandOne(scheduleID string, start, end time.Time) error
}

// CollectionService manages term timetables.
type CollectionService struct {
	repo             collectionStore
	timetable        timetableReader
	expansion        expansionEnqueuer
	stats            collectionInvalidator
	validator        *validator.Validate
	logger           *zap.Logger
	defaultThreshold int
}

// NewCollectionService constructs the service.
func NewCollectionService(repo collectionStore, timetable timetableReader, expansion expansionEnqueuer, stats collectionInvalidator, validate *validator.Validate, logger *zap.Logger, defaultThreshold int) *CollectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultThreshold < 0 || defaultThreshold > 100 {
		defaultThreshold = models.DefaultThreshold
	}
	return &CollectionService{
		repo:             repo,
		timetable:        timetable,
		expansion:        expansion,
		stats:            stats,
		validator:        validate,
		logger:           logger,
		defaultThreshold: defaultThreshold,
	}
}

// Create builds a collection from a timetable grid and schedules session expansion.
func (s *CollectionService) Create(ctx context.Context, ownerID string, req dto.CollectionRequest) (*dto.CollectionResponse, error) {
	collection, err := s.collectionFromRequest(req)
	if err != nil {
		return nil, err
	}
	collection.OwnerID = ownerID
	tree := &models.CollectionTree{Collection: *collection, Courses: BuildCourseTrees(req.Timetable)}
	if err := s.repo.CreateTree(ctx, tree); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create collection")
	}
	s.scheduleExpandAll(&tree.Collection)
	return treeResponse(tree), nil
}

// Replace discards the collection's courses, schedules and sessions and rebuilds
// them from the request. Attendance history is intentionally not carried over.
func (s *CollectionService) Replace(ctx context.Context, ownerID, id string, req dto.CollectionRequest) (*dto.CollectionResponse, error) {
	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	collection, err := s.collectionFromRequest(req)
	if err != nil {
		return nil, err
	}
	collection.ID = existing.ID
	collection.OwnerID = existing.OwnerID
	collection.CreatedAt = existing.CreatedAt
	tree := &models.CollectionTree{Collection: *collection, Courses: BuildCourseTrees(req.Timetable)}
	if err := s.repo.ReplaceTree(ctx, tree); err != nil {
		return nil, appErrors.Storage(err, "collection", "replace")
	}
	s.stats.InvalidateCollection(ctx, id)
	s.logger.Info("collection rebuilt", zap.String("collection_id", id), zap.Int("courses", len(tree.Courses)))
	s.scheduleExpandAll(&tree.Collection)
	return treeResponse(tree), nil
}

// Get returns an owned collection with its courses and weekly grid.
func (s *CollectionService) Get(ctx context.Context, ownerID, id string) (*dto.CollectionResponse, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	tree, err := s.repo.LoadTree(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	return treeResponse(tree), nil
}

// List returns the caller's collections.
func (s *CollectionService) List(ctx context.Context, ownerID string, page, size int) ([]models.Collection, *models.Pagination, error) {
	page, size = pageDefaults(page, size)
	collections, total, err := s.repo.ListByOwner(ctx, ownerID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collections")
	}
	return collections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListShared returns collections available for cloning.
func (s *CollectionService) ListShared(ctx context.Context, page, size int) ([]models.Collection, *models.Pagination, error) {
	page, size = pageDefaults(page, size)
	collections, total, err := s.repo.ListShared(ctx, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shared collections")
	}
	return collections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Clone copies a shared collection's courses and schedules into a new collection
// owned by the caller. Sessions are regenerated, never copied.
func (s *CollectionService) Clone(ctx context.Context, ownerID, sourceID string) (*dto.CollectionResponse, error) {
	source, err := s.repo.LoadTree(ctx, sourceID)
	if err != nil {
		return nil, appErrors.Storage(err, "collection", "load")
	}
	if !source.Collection.Shared && source.Collection.OwnerID != ownerID {
		return nil, appErrors.ErrNotShared
	}
	clone := &models.CollectionTree{
		Collection: models.Collection{
			OwnerID:   ownerID,
			Name:      source.Collection.Name,
			Threshold: source.Collection.Threshold,
			StartDate: source.Collection.StartDate,
			EndDate:   source.Collection.EndDate,
		},
		Courses: make([]models.CourseTree, 0, len(source.Courses)),
	}
	for _, course := range source.Courses {
		copied := models.CourseTree{Course: models.Course{Name: course.Course.Name}}
		for _, schedule := range course.Schedules {
			copied.Schedules = append(copied.Schedules, models.Schedule{DayOfWeek: schedule.DayOfWeek, Order: schedule.Order})
		}
		clone.Courses = append(clone.Courses, copied)
	}
	if err := s.repo.CreateTree(ctx, clone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clone collection")
	}
	s.logger.Info("collection cloned", zap.String("source_id", sourceID), zap.String("collection_id", clone.Collection.ID))
	s.scheduleExpandAll(&clone.Collection)
	return treeResponse(clone), nil
}

// UpdateSettings changes threshold, date range, name or shared flag. When the
// range changes, expansion is re-run over the new range; existing sessions are kept.
func (s *CollectionService) UpdateSettings(ctx context.Context, ownerID, id string, req dto.CollectionSettingsRequest) (*models.Collection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	collection, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	rangeChanged := false
	if req.Name != nil {
		collection.Name = *req.Name
	}
	if req.Shared != nil {
		collection.Shared = *req.Shared
	}
	if req.Threshold != nil {
		collection.Threshold = *req.Threshold
	}
	if req.StartDate != nil {
		start, _ := calendar.ParseDate(*req.StartDate)
		rangeChanged = rangeChanged || !start.Equal(collection.StartDate)
		collection.StartDate = start
	}
	if req.EndDate != nil {
		end, _ := calendar.ParseDate(*req.EndDate)
		rangeChanged = rangeChanged || !end.Equal(collection.EndDate)
		collection.EndDate = end
	}
	if collection.StartDate.After(collection.EndDate) {
		return nil, appErrors.ErrInvalidDateRange
	}
	if err := s.repo.UpdateSettings(ctx, collection); err != nil {
		return nil, appErrors.Storage(err, "collection", "update")
	}
	s.stats.InvalidateCollection(ctx, id)
	if rangeChanged {
		s.scheduleExpandAll(collection)
	}
	return collection, nil
}

// Delete removes an owned collection and everything under it.
func (s *CollectionService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Storage(err, "collection", "delete")
	}
	s.stats.InvalidateCollection(ctx, id)
	return nil
}

// Timetable reconstructs the weekly grid of an owned collection.
func (s *CollectionService) Timetable(ctx context.Context, ownerID, id string) (*dto.TimetableResponse, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	slots, err := s.timetable.ListTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return &dto.TimetableResponse{CollectionID: id, Days: dayNames(), Grid: BuildTimetableGrid(slots), Slots: slots}, nil
}

func (s *CollectionService) owned(ctx context.Context, ownerID, id string) (*models.Collection, error) {
	return ownedCollection(ctx, s.repo, ownerID, id)
}

func (s *CollectionService) collectionFromRequest(req dto.CollectionRequest) (*models.Collection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
	}
	if start.After(end) {
		return nil, appErrors.ErrInvalidDateRange
	}
	threshold := s.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	return &models.Collection{Name: req.Name, Shared: req.Shared, Threshold: threshold, StartDate: start, EndDate: end}, nil
}

func (s *CollectionService) scheduleExpandAll(c *models.Collection) {
	if err := s.expansion.EnqueueExpandAll(c.ID, c.StartDate, c.EndDate); err != nil {
		s.logger.Error("failed to enqueue session expansion", zap.String("collection_id", c.ID), zap.Error(err))
	}
}

type collectionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
}

// ownedCollection hides collections of other owners behind NOT_FOUND.
func ownedCollection(ctx context.Context, repo collectionFinder, ownerID, id string) (*models.Collection, error) {
	collection, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Storage(err, "collection", "load")
	}
	if collection.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
	}
	return collection, nil
}

func treeResponse(tree *models.CollectionTree) *dto.CollectionResponse {
	courses := make([]models.Course, 0, len(tree.Courses))
	for _, course := range tree.Courses {
		courses = append(courses, course.Course)
	}
	return &dto.CollectionResponse{
		Collection: tree.Collection,
		Courses:    courses,
		Timetable:  BuildTimetableGrid(treeSlots(tree)),
	}
}

func pageDefaults(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}
