package models

import (
	"strings"
	"time"
)

// DayOfWeek encodes Monday..Friday as 1..5.
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var dayNames = map[DayOfWeek]string{
	Monday:    "monday",
	Tuesday:   "tuesday",
	Wednesday: "wednesday",
	Thursday:  "thursday",
	Friday:    "friday",
}

// Valid reports whether the day is a schedulable weekday.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Friday
}

// String returns the lowercase english day name.
func (d DayOfWeek) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return "invalid"
}

// ParseDayOfWeek accepts a lowercase or capitalised english day name.
func ParseDayOfWeek(raw string) (DayOfWeek, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for d, name := range dayNames {
		if name == raw {
			return d, true
		}
	}
	return 0, false
}

// Schedule is a weekly recurrence of a course in a (day, period order) slot.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	Order     int       `db:"period_order" json:"order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScheduleRule is the subset of a schedule needed for session expansion.
type ScheduleRule struct {
	ScheduleID   string    `db:"schedule_id" json:"schedule_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	CourseName   string    `db:"course_name" json:"course_name"`
	CollectionID string    `db:"collection_id" json:"collection_id"`
	DayOfWeek    DayOfWeek `db:"day_of_week" json:"day_of_week"`
	Order        int       `db:"period_order" json:"order"`
}

// TimetableSlot places a course in the weekly grid.
type TimetableSlot struct {
	CourseID   string    `db:"course_id" json:"course_id"`
	CourseName string    `db:"course_name" json:"course_name"`
	DayOfWeek  DayOfWeek `db:"day_of_week" json:"day_of_week"`
	Order      int       `db:"period_order" json:"order"`
}
