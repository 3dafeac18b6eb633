package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func mustCalendar(t *testing.T, holidays ...string) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New(holidays)
	require.NoError(t, err)
	return cal
}

type expansionCollectionStub struct {
	collections map[string]*models.Collection
}

func (s *expansionCollectionStub) FindByID(_ context.Context, id string) (*models.Collection, error) {
	if c, ok := s.collections[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type ruleStub struct {
	rules []models.ScheduleRule
	err   error
}

func (s *ruleStub) ListRulesByCollection(_ context.Context, collectionID string) ([]models.ScheduleRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.ScheduleRule
	for _, r := range s.rules {
		if r.CollectionID == collectionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ruleStub) FindRule(_ context.Context, scheduleID string) (*models.ScheduleRule, error) {
	for _, r := range s.rules {
		if r.ScheduleID == scheduleID {
			rule := r
			return &rule, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *ruleStub) ListRulesForDay(_ context.Context, day models.DayOfWeek, _ time.Time) ([]models.ScheduleRule, error) {
	var out []models.ScheduleRule
	for _, r := range s.rules {
		if r.DayOfWeek == day {
			out = append(out, r)
		}
	}
	return out, nil
}

// memorySessions mimics the unique (course_id, date) index.
type memorySessions struct {
	rows      []models.Session
	insertErr error
	inserts   int
}

func (m *memorySessions) ExistingKeys(_ context.Context, courseIDs []string, from, to time.Time) (map[models.SessionKey]struct{}, error) {
	wanted := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}
	keys := make(map[models.SessionKey]struct{})
	for _, s := range m.rows {
		if _, ok := wanted[s.CourseID]; !ok {
			continue
		}
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		keys[s.Key()] = struct{}{}
	}
	return keys, nil
}

func (m *memorySessions) BulkInsert(_ context.Context, sessions []models.Session) (int, error) {
	m.inserts++
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	inserted := 0
	for _, s := range sessions {
		if m.has(s.Key()) {
			continue
		}
		if s.ID == "" {
			s.ID = s.CourseID + "@" + calendar.FormatDate(s.Date)
		}
		m.rows = append(m.rows, s)
		inserted++
	}
	return inserted, nil
}

func (m *memorySessions) has(key models.SessionKey) bool {
	for _, s := range m.rows {
		if s.Key() == key {
			return true
		}
	}
	return false
}

type invalidationRecorder struct {
	ids []string
}

func (r *invalidationRecorder) InvalidateCollection(_ context.Context, id string) {
	r.ids = append(r.ids, id)
}

func (r *invalidationRecorder) Get(context.Context, string, interface{}) (bool, error) {
	return false, nil
}

func (r *invalidationRecorder) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func newExpanderForTest(t *testing.T, rules []models.ScheduleRule, sessions *memorySessions) (*SessionExpander, *invalidationRecorder) {
	t.Helper()
	collections := &expansionCollectionStub{collections: map[string]*models.Collection{
		"col-1": {ID: "col-1", OwnerID: "user-1", Threshold: 75},
	}}
	inv := &invalidationRecorder{}
	exp := NewSessionExpander(mustCalendar(t), collections, &ruleStub{rules: rules}, sessions, inv, nil, zap.NewNop())
	return exp, inv
}

func TestExpandSessionsMondayRuleInFebruary(t *testing.T) {
	cal := mustCalendar(t)
	rules := []models.ScheduleRule{{CourseID: "math", DayOfWeek: models.Monday}}

	sessions := ExpandSessions(cal.WorkingDays(mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29")), rules, nil)

	require.Len(t, sessions, 4)
	want := []string{"2024-02-05", "2024-02-12", "2024-02-19", "2024-02-26"}
	for i, s := range sessions {
		assert.Equal(t, want[i], calendar.FormatDate(s.Date))
		assert.Equal(t, "math", s.CourseID)
		assert.Equal(t, models.SessionStatusPresent, s.Status)
	}
}

func TestExpandSessionsFullWeekOverTwoWeeks(t *testing.T) {
	cal := mustCalendar(t)
	var rules []models.ScheduleRule
	for d := models.Monday; d <= models.Friday; d++ {
		rules = append(rules, models.ScheduleRule{CourseID: "daily", DayOfWeek: d})
	}

	sessions := ExpandSessions(cal.WorkingDays(mustDate(t, "2024-03-04"), mustDate(t, "2024-03-17")), rules, nil)

	assert.Len(t, sessions, 10)
}

func TestExpandSessionsSkipsHolidaysAndExisting(t *testing.T) {
	cal := mustCalendar(t, "2024-02-12")
	rules := []models.ScheduleRule{{CourseID: "math", DayOfWeek: models.Monday}}
	existing := map[models.SessionKey]struct{}{
		models.NewSessionKey("math", mustDate(t, "2024-02-19")): {},
	}

	sessions := ExpandSessions(cal.WorkingDays(mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29")), rules, existing)

	require.Len(t, sessions, 2)
	assert.Equal(t, "2024-02-05", calendar.FormatDate(sessions[0].Date))
	assert.Equal(t, "2024-02-26", calendar.FormatDate(sessions[1].Date))
}

func TestExpandSessionsDeduplicatesWithinBatch(t *testing.T) {
	cal := mustCalendar(t)
	rules := []models.ScheduleRule{
		{ScheduleID: "s1", CourseID: "lab", DayOfWeek: models.Tuesday, Order: 1},
		{ScheduleID: "s2", CourseID: "lab", DayOfWeek: models.Tuesday, Order: 2},
	}

	sessions := ExpandSessions(cal.WorkingDays(mustDate(t, "2024-02-06"), mustDate(t, "2024-02-06")), rules, nil)

	assert.Len(t, sessions, 1)
}

func TestExpandSessionsEmptyInputs(t *testing.T) {
	cal := mustCalendar(t)
	rules := []models.ScheduleRule{{CourseID: "math", DayOfWeek: models.Monday}}

	assert.Empty(t, ExpandSessions(cal.WorkingDays(mustDate(t, "2024-02-10"), mustDate(t, "2024-02-01")), rules, nil))
	assert.Empty(t, ExpandSessions(cal.WorkingDays(mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29")), nil, nil))
}

func TestSessionExpanderExpandAllIsIdempotent(t *testing.T) {
	rules := []models.ScheduleRule{
		{ScheduleID: "s1", CollectionID: "col-1", CourseID: "math", DayOfWeek: models.Monday, Order: 1},
		{ScheduleID: "s2", CollectionID: "col-1", CourseID: "physics", DayOfWeek: models.Wednesday, Order: 2},
	}
	store := &memorySessions{}
	exp, inv := newExpanderForTest(t, rules, store)
	start, end := mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29")

	first, err := exp.ExpandAll(context.Background(), "col-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, 8, first)

	second, err := exp.ExpandAll(context.Background(), "col-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Len(t, store.rows, 8)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, []string{"col-1"}, inv.ids)
}

func TestSessionExpanderExpandOne(t *testing.T) {
	rules := []models.ScheduleRule{
		{ScheduleID: "s1", CollectionID: "col-1", CourseID: "math", DayOfWeek: models.Monday, Order: 1},
		{ScheduleID: "s2", CollectionID: "col-1", CourseID: "physics", DayOfWeek: models.Wednesday, Order: 2},
	}
	store := &memorySessions{}
	exp, _ := newExpanderForTest(t, rules, store)

	inserted, err := exp.ExpandOne(context.Background(), "s2", mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29"))
	require.NoError(t, err)
	assert.Equal(t, 4, inserted)
	for _, s := range store.rows {
		assert.Equal(t, "physics", s.CourseID)
	}
}

func TestSessionExpanderMissingReferenceInsertsNothing(t *testing.T) {
	store := &memorySessions{}
	exp, _ := newExpanderForTest(t, nil, store)
	start, end := mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29")

	_, err := exp.ExpandAll(context.Background(), "missing", start, end)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = exp.ExpandOne(context.Background(), "missing", start, end)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Empty(t, store.rows)
	assert.Zero(t, store.inserts)
}

func TestSessionExpanderInsertFailureIsInternal(t *testing.T) {
	rules := []models.ScheduleRule{{ScheduleID: "s1", CollectionID: "col-1", CourseID: "math", DayOfWeek: models.Monday, Order: 1}}
	store := &memorySessions{insertErr: errors.New("tx aborted")}
	exp, inv := newExpanderForTest(t, rules, store)

	_, err := exp.ExpandAll(context.Background(), "col-1", mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, inv.ids)
}
