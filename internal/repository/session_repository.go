package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

const sessionColumns = "id, course_id, date, status, created_at, updated_at"

// SessionRepository handles persistence for dated course sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListByCourse returns all sessions of a course in date order.
func (r *SessionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE course_id = $1 ORDER BY date ASC", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, courseID); err != nil {
		return nil, fmt.Errorf("list course sessions: %w", err)
	}
	return sessions, nil
}

// ListByCollection returns every session of every course in the collection.
func (r *SessionRepository) ListByCollection(ctx context.Context, collectionID string) ([]models.Session, error) {
	const query = `SELECT se.id, se.course_id, se.date, se.status, se.created_at, se.updated_at
FROM sessions se
JOIN courses c ON c.id = se.course_id
WHERE c.collection_id = $1
ORDER BY se.date ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, collectionID); err != nil {
		return nil, fmt.Errorf("list collection sessions: %w", err)
	}
	return sessions, nil
}

// ListForDay returns the sessions held on a date within a collection.
func (r *SessionRepository) ListForDay(ctx context.Context, collectionID string, date time.Time) ([]models.DaySession, error) {
	const query = `SELECT se.id AS session_id, c.id AS course_id, c.name AS course_name, se.date, se.status
FROM sessions se
JOIN courses c ON c.id = se.course_id
WHERE c.collection_id = $1 AND se.date = $2
ORDER BY c.name ASC`
	var rows []models.DaySession
	if err := r.db.SelectContext(ctx, &rows, query, collectionID, date); err != nil {
		return nil, fmt.Errorf("list day sessions: %w", err)
	}
	return rows, nil
}

// FindOwned loads a session together with its collection and owner.
func (r *SessionRepository) FindOwned(ctx context.Context, id string) (*models.SessionOwner, error) {
	const query = `SELECT se.id, se.course_id, se.date, se.status, se.created_at, se.updated_at, col.id AS collection_id, col.owner_id
FROM sessions se
JOIN courses c ON c.id = se.course_id
JOIN collections col ON col.id = c.collection_id
WHERE se.id = $1`
	var row models.SessionOwner
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ExistingKeys returns the (course, date) pairs that already have sessions in the range.
func (r *SessionRepository) ExistingKeys(ctx context.Context, courseIDs []string, from, to time.Time) (map[models.SessionKey]struct{}, error) {
	keys := make(map[models.SessionKey]struct{})
	if len(courseIDs) == 0 {
		return keys, nil
	}
	const query = `SELECT course_id, date FROM sessions WHERE course_id = ANY($1) AND date >= $2 AND date <= $3`
	var rows []struct {
		CourseID string    `db:"course_id"`
		Date     time.Time `db:"date"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(courseIDs), from, to); err != nil {
		return nil, fmt.Errorf("load existing sessions: %w", err)
	}
	for _, row := range rows {
		keys[models.NewSessionKey(row.CourseID, row.Date)] = struct{}{}
	}
	return keys, nil
}

// BulkInsert writes sessions in one transaction. Pairs that already exist are
// skipped by the unique (course_id, date) index; the inserted count is returned.
func (r *SessionRepository) BulkInsert(ctx context.Context, sessions []models.Session) (inserted int, err error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	for _, s := range sessions {
		if !s.Status.Valid() {
			return 0, appErrors.ErrInvalidStatus
		}
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk sessions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO sessions (id, course_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (course_id, date) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare bulk sessions: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range sessions {
		s := &sessions[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.CreatedAt, s.UpdatedAt = now, now
		res, execErr := stmt.ExecContext(ctx, s.ID, s.CourseID, s.Date, s.Status, s.CreatedAt, s.UpdatedAt)
		if execErr != nil {
			err = fmt.Errorf("bulk insert sessions: %w", execErr)
			return 0, err
		}
		affected, _ := res.RowsAffected()
		inserted += int(affected)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk sessions: %w", err)
	}
	return inserted, nil
}

// CreateIfAbsent inserts a session unless one exists for the same course and date,
// in which case the stored row is returned with created=false.
func (r *SessionRepository) CreateIfAbsent(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	if !session.Status.Valid() {
		return nil, false, appErrors.ErrInvalidStatus
	}
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt, session.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO sessions (id, course_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (course_id, date) DO NOTHING
RETURNING %s`, sessionColumns)
	var stored models.Session
	err := r.db.GetContext(ctx, &stored, query, session.ID, session.CourseID, session.Date, session.Status, session.CreatedAt, session.UpdatedAt)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	existing := fmt.Sprintf("SELECT %s FROM sessions WHERE course_id = $1 AND date = $2", sessionColumns)
	if err := r.db.GetContext(ctx, &stored, existing, session.CourseID, session.Date); err != nil {
		return nil, false, fmt.Errorf("load existing session: %w", err)
	}
	return &stored, false, nil
}

// UpdateStatus changes the status of a session.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) (*models.Session, error) {
	if !status.Valid() {
		return nil, appErrors.ErrInvalidStatus
	}
	query := fmt.Sprintf("UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3 RETURNING %s", sessionColumns)
	var stored models.Session
	if err := r.db.GetContext(ctx, &stored, query, status, time.Now().UTC(), id); err != nil {
		return nil, err
	}
	return &stored, nil
}
