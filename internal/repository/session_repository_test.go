package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", raw)
	require.NoError(t, err)
	return d
}

var sessionRowColumns = []string{"id", "course_id", "date", "status", "created_at", "updated_at"}

func TestSessionRepositoryBulkInsertCountsInserted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	sessions := []models.Session{
		{CourseID: "math", Date: day(t, "2024-02-05"), Status: models.SessionStatusPresent},
		{CourseID: "math", Date: day(t, "2024-02-12"), Status: models.SessionStatusPresent},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO sessions (id, course_id, date, status, created_at, updated_at)`))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "math", sessions[0].Date, models.SessionStatusPresent, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "math", sessions[1].Date, models.SessionStatusPresent, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.BulkInsert(context.Background(), sessions)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NotEmpty(t, sessions[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryBulkInsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	sessions := []models.Session{
		{CourseID: "math", Date: day(t, "2024-02-05"), Status: models.SessionStatusPresent},
		{CourseID: "gone", Date: day(t, "2024-02-05"), Status: models.SessionStatusPresent},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO sessions`))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("violates foreign key constraint"))
	mock.ExpectRollback()

	inserted, err := repo.BulkInsert(context.Background(), sessions)
	require.Error(t, err)
	assert.Zero(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRejectsInvalidStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	_, err := repo.BulkInsert(context.Background(), []models.Session{{CourseID: "math", Date: day(t, "2024-02-05"), Status: "late"}})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)

	_, _, err = repo.CreateIfAbsent(context.Background(), &models.Session{CourseID: "math", Status: "excused"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)

	_, err = repo.UpdateStatus(context.Background(), "s1", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryExistingKeys(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	from, to := day(t, "2024-02-01"), day(t, "2024-02-29")

	rows := sqlmock.NewRows([]string{"course_id", "date"}).
		AddRow("math", day(t, "2024-02-05")).
		AddRow("physics", day(t, "2024-02-07"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT course_id, date FROM sessions WHERE course_id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg(), from, to).
		WillReturnRows(rows)

	keys, err := repo.ExistingKeys(context.Background(), []string{"math", "physics"}, from, to)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, models.SessionKey{CourseID: "math", Date: "2024-02-05"})

	empty, err := repo.ExistingKeys(context.Background(), nil, from, to)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateIfAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	date := day(t, "2024-02-05")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sessions`)).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow("s-new", "math", date, "present", now, now))

	stored, created, err := repo.CreateIfAbsent(context.Background(), &models.Session{CourseID: "math", Date: date, Status: models.SessionStatusPresent})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s-new", stored.ID)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sessions`)).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, course_id, date, status, created_at, updated_at FROM sessions WHERE course_id = $1 AND date = $2`)).
		WithArgs("math", date).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow("s-old", "math", date, "bunked", now, now))

	stored, created, err = repo.CreateIfAbsent(context.Background(), &models.Session{CourseID: "math", Date: date, Status: models.SessionStatusPresent})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s-old", stored.ID)
	assert.Equal(t, models.SessionStatusBunked, stored.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs(models.SessionStatusCancelled, sqlmock.AnyArg(), "s1").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow("s1", "math", day(t, "2024-02-05"), "cancelled", now, now))

	updated, err := repo.UpdateStatus(context.Background(), "s1", models.SessionStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCancelled, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindOwned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	now := time.Now().UTC()

	columns := append(append([]string{}, sessionRowColumns...), "collection_id", "owner_id")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions se`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("s1", "math", day(t, "2024-02-05"), "present", now, now, "col-1", "user-1"))

	owned, err := repo.FindOwned(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "col-1", owned.CollectionID)
	assert.Equal(t, "user-1", owned.OwnerID)
	assert.Equal(t, "math", owned.CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}
