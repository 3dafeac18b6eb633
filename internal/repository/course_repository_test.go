package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "collection_id", "name", "created_at"}).
		AddRow("math", "col-1", "Math", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, collection_id, name, created_at FROM courses WHERE id = $1`)).
		WithArgs("math").
		WillReturnRows(rows)

	course, err := repo.FindByID(context.Background(), "math")
	require.NoError(t, err)
	assert.Equal(t, "col-1", course.CollectionID)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, collection_id, name, created_at FROM courses WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateWithSchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	course := &models.Course{CollectionID: "col-1", Name: "Chemistry"}
	schedule := &models.Schedule{DayOfWeek: models.Wednesday, Order: 2}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO courses (id, collection_id, name, created_at)`)).
		WithArgs(sqlmock.AnyArg(), "col-1", "Chemistry", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schedules (id, course_id, day_of_week, period_order, created_at)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateWithSchedule(context.Background(), course, schedule))
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, course.ID, schedule.CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateWithScheduleRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO courses`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schedules`)).
		WillReturnError(errors.New("duplicate slot"))
	mock.ExpectRollback()

	err := repo.CreateWithSchedule(context.Background(), &models.Course{CollectionID: "col-1", Name: "Bio"}, &models.Schedule{DayOfWeek: models.Monday, Order: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schedule")
	assert.NoError(t, mock.ExpectationsWereMet())
}
