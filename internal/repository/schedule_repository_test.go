package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

var ruleColumns = []string{"schedule_id", "course_id", "course_name", "collection_id", "day_of_week", "period_order"}

func TestScheduleRepositoryFindRule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.id = $1`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(ruleColumns).AddRow("s1", "math", "Math", "col-1", 3, 2))

	rule, err := repo.FindRule(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.Wednesday, rule.DayOfWeek)
	assert.Equal(t, "col-1", rule.CollectionID)
	assert.Equal(t, 2, rule.Order)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	_, err = repo.FindRule(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListRulesForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	date := day(t, "2024-02-12")

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.day_of_week = $1 AND col.start_date <= $2 AND col.end_date >= $2`)).
		WithArgs(1, date).
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow("s1", "math", "Math", "col-1", 1, 1).
			AddRow("s9", "art", "Art", "col-2", 1, 4))

	rules, err := repo.ListRulesForDay(context.Background(), models.Monday, date)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
	assert.Equal(t, "col-2", rules[1].CollectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schedules (id, course_id, day_of_week, period_order, created_at) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(sqlmock.AnyArg(), "math", 5, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	schedule := &models.Schedule{CourseID: "math", DayOfWeek: models.Friday, Order: 3}
	require.NoError(t, repo.Create(context.Background(), schedule))
	assert.NotEmpty(t, schedule.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
