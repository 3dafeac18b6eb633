package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID loads a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, `SELECT id, collection_id, name, created_at FROM courses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByCollection returns the courses of a collection ordered by name.
func (r *CourseRepository) ListByCollection(ctx context.Context, collectionID string) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, `SELECT id, collection_id, name, created_at FROM courses WHERE collection_id = $1 ORDER BY name ASC`, collectionID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// CreateWithSchedule inserts a course and its first weekly schedule atomically.
func (r *CourseRepository) CreateWithSchedule(ctx context.Context, course *models.Course, schedule *models.Schedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.CreatedAt = now
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO courses (id, collection_id, name, created_at) VALUES (:id, :collection_id, :name, :created_at)`, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	schedule.CourseID = course.ID
	if err = insertSchedule(ctx, tx, schedule, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create course tx: %w", err)
	}
	return nil
}
