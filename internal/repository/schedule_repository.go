package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

const ruleSelect = `SELECT s.id AS schedule_id, s.course_id, c.name AS course_name, c.collection_id, s.day_of_week, s.period_order
FROM schedules s
JOIN courses c ON c.id = s.course_id`

// ScheduleRepository handles persistence for weekly schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a schedule for an existing course.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	return insertSchedule(ctx, r.db, schedule, time.Now().UTC())
}

// FindRule loads a single schedule as an expansion rule.
func (r *ScheduleRepository) FindRule(ctx context.Context, scheduleID string) (*models.ScheduleRule, error) {
	var rule models.ScheduleRule
	if err := r.db.GetContext(ctx, &rule, ruleSelect+` WHERE s.id = $1`, scheduleID); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRulesByCollection returns every schedule of a collection as expansion rules.
func (r *ScheduleRepository) ListRulesByCollection(ctx context.Context, collectionID string) ([]models.ScheduleRule, error) {
	var rules []models.ScheduleRule
	query := ruleSelect + ` WHERE c.collection_id = $1 ORDER BY s.day_of_week ASC, s.period_order ASC`
	if err := r.db.SelectContext(ctx, &rules, query, collectionID); err != nil {
		return nil, fmt.Errorf("list schedule rules: %w", err)
	}
	return rules, nil
}

// ListRulesForDay returns schedules meeting on the given weekday in collections whose range contains date.
func (r *ScheduleRepository) ListRulesForDay(ctx context.Context, day models.DayOfWeek, date time.Time) ([]models.ScheduleRule, error) {
	var rules []models.ScheduleRule
	query := ruleSelect + `
JOIN collections col ON col.id = c.collection_id
WHERE s.day_of_week = $1 AND col.start_date <= $2 AND col.end_date >= $2`
	if err := r.db.SelectContext(ctx, &rules, query, int(day), date); err != nil {
		return nil, fmt.Errorf("list schedule rules for day: %w", err)
	}
	return rules, nil
}

// ListTimetable returns the (order, day) slots of a collection's courses.
func (r *ScheduleRepository) ListTimetable(ctx context.Context, collectionID string) ([]models.TimetableSlot, error) {
	var slots []models.TimetableSlot
	const query = `SELECT s.course_id, c.name AS course_name, s.day_of_week, s.period_order
FROM schedules s
JOIN courses c ON c.id = s.course_id
WHERE c.collection_id = $1
ORDER BY s.period_order ASC, s.day_of_week ASC`
	if err := r.db.SelectContext(ctx, &slots, query, collectionID); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return slots, nil
}
