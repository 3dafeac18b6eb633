package dto

import "github.com/noah-isme/attendance-tracker-api/internal/models"

// CollectionRequest creates or replaces a collection. Timetable rows are periods
// (order 1..n) and columns are Monday..Friday; an empty cell is a free period.
type CollectionRequest struct {
	Name      string     `json:"name" validate:"required,max=120"`
	Shared    bool       `json:"shared"`
	Threshold *int       `json:"threshold" validate:"omitempty,min=0,max=100"`
	StartDate string     `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string     `json:"end_date" validate:"required,datetime=2006-01-02"`
	Timetable [][]string `json:"timetable" validate:"required,max=16,dive,max=5,dive,max=120"`
}

// CollectionSettingsRequest updates scalar collection fields without touching courses.
type CollectionSettingsRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=120"`
	Shared    *bool   `json:"shared"`
	Threshold *int    `json:"threshold" validate:"omitempty,min=0,max=100"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// CollectionResponse is a collection with its reconstructed weekly grid.
type CollectionResponse struct {
	models.Collection
	Courses   []models.Course `json:"courses"`
	Timetable [][]string      `json:"timetable"`
}

// TimetableResponse is the weekly grid of a collection.
type TimetableResponse struct {
	CollectionID string                 `json:"collection_id"`
	Days         []string               `json:"days"`
	Grid         [][]string             `json:"grid"`
	Slots        []models.TimetableSlot `json:"slots"`
}

// AddCourseRequest adds a course with its first weekly slot to an existing collection.
type AddCourseRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=5"`
	Order     int    `json:"order" validate:"required,min=1"`
}

// ScheduleRequest adds another weekly slot to a course.
type ScheduleRequest struct {
	DayOfWeek int `json:"day_of_week" validate:"required,min=1,max=5"`
	Order     int `json:"order" validate:"required,min=1"`
}

// CourseResponse reports a created course and schedule.
type CourseResponse struct {
	Course   models.Course   `json:"course"`
	Schedule models.Schedule `json:"schedule"`
}
