package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

const collectionColumns = "id, owner_id, name, shared, threshold, start_date, end_date, created_at, updated_at"

// CollectionRepository handles persistence for collections and their course trees.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository instantiates a collection repository.
func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// FindByID loads a collection by identifier.
func (r *CollectionRepository) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	query := fmt.Sprintf("SELECT %s FROM collections WHERE id = $1", collectionColumns)
	var collection models.Collection
	if err := r.db.GetContext(ctx, &collection, query, id); err != nil {
		return nil, err
	}
	return &collection, nil
}

// ListByOwner returns the owner's collections, newest first.
func (r *CollectionRepository) ListByOwner(ctx context.Context, ownerID string, page, size int) ([]models.Collection, int, error) {
	page, size = normalisePage(page, size)
	query := fmt.Sprintf("SELECT %s FROM collections WHERE owner_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d", collectionColumns, size, (page-1)*size)
	var collections []models.Collection
	if err := r.db.SelectContext(ctx, &collections, query, ownerID); err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM collections WHERE owner_id = $1", ownerID); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}
	return collections, total, nil
}

// ListShared returns collections published for cloning.
func (r *CollectionRepository) ListShared(ctx context.Context, page, size int) ([]models.Collection, int, error) {
	page, size = normalisePage(page, size)
	query := fmt.Sprintf("SELECT %s FROM collections WHERE shared = TRUE ORDER BY name ASC LIMIT %d OFFSET %d", collectionColumns, size, (page-1)*size)
	var collections []models.Collection
	if err := r.db.SelectContext(ctx, &collections, query); err != nil {
		return nil, 0, fmt.Errorf("list shared collections: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM collections WHERE shared = TRUE"); err != nil {
		return nil, 0, fmt.Errorf("count shared collections: %w", err)
	}
	return collections, total, nil
}

// LoadTree returns the collection with its courses and schedules.
func (r *CollectionRepository) LoadTree(ctx context.Context, id string) (*models.CollectionTree, error) {
	collection, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, `SELECT id, collection_id, name, created_at FROM courses WHERE collection_id = $1 ORDER BY name ASC`, id); err != nil {
		return nil, fmt.Errorf("load collection courses: %w", err)
	}
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, `SELECT s.id, s.course_id, s.day_of_week, s.period_order, s.created_at
FROM schedules s
JOIN courses c ON c.id = s.course_id
WHERE c.collection_id = $1
ORDER BY s.period_order ASC, s.day_of_week ASC`, id); err != nil {
		return nil, fmt.Errorf("load collection schedules: %w", err)
	}
	byCourse := make(map[string][]models.Schedule, len(courses))
	for _, schedule := range schedules {
		byCourse[schedule.CourseID] = append(byCourse[schedule.CourseID], schedule)
	}
	tree := &models.CollectionTree{Collection: *collection, Courses: make([]models.CourseTree, 0, len(courses))}
	for _, course := range courses {
		tree.Courses = append(tree.Courses, models.CourseTree{Course: course, Schedules: byCourse[course.ID]})
	}
	return tree, nil
}

// CreateTree inserts a collection with all of its courses and schedules in one transaction.
func (r *CollectionRepository) CreateTree(ctx context.Context, tree *models.CollectionTree) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create collection tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	c := &tree.Collection
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	const insert = `INSERT INTO collections (id, owner_id, name, shared, threshold, start_date, end_date, created_at, updated_at) VALUES (:id, :owner_id, :name, :shared, :threshold, :start_date, :end_date, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, c); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if err = insertCourses(ctx, tx, c.ID, tree.Courses, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create collection tx: %w", err)
	}
	return nil
}

// ReplaceTree overwrites the collection fields and rebuilds its whole subtree.
// Existing courses, schedules and sessions are deleted in the same transaction.
func (r *CollectionRepository) ReplaceTree(ctx context.Context, tree *models.CollectionTree) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace collection tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	c := &tree.Collection
	c.UpdatedAt = now
	const update = `UPDATE collections SET name = :name, shared = :shared, threshold = :threshold, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx, update, c)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if err = expectAffected(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE collection_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete collection courses: %w", err)
	}
	if err = insertCourses(ctx, tx, c.ID, tree.Courses, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace collection tx: %w", err)
	}
	return nil
}

// UpdateSettings persists threshold, date range, name and shared flag.
func (r *CollectionRepository) UpdateSettings(ctx context.Context, c *models.Collection) error {
	c.UpdatedAt = time.Now().UTC()
	const query = `UPDATE collections SET name = :name, shared = :shared, threshold = :threshold, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("update collection settings: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a collection; courses, schedules and sessions cascade.
func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return expectAffected(res)
}

func insertCourses(ctx context.Context, tx *sqlx.Tx, collectionID string, courses []models.CourseTree, now time.Time) error {
	const courseInsert = `INSERT INTO courses (id, collection_id, name, created_at) VALUES (:id, :collection_id, :name, :created_at)`
	for i := range courses {
		course := &courses[i].Course
		if course.ID == "" {
			course.ID = uuid.NewString()
		}
		course.CollectionID = collectionID
		course.CreatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, courseInsert, course); err != nil {
			return fmt.Errorf("create course %s: %w", course.Name, err)
		}
		for j := range courses[i].Schedules {
			schedule := &courses[i].Schedules[j]
			schedule.CourseID = course.ID
			if err := insertSchedule(ctx, tx, schedule, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertSchedule(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule, now time.Time) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = now
	const query = `INSERT INTO schedules (id, course_id, day_of_week, period_order, created_at) VALUES (:id, :course_id, :day_of_week, :period_order, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
