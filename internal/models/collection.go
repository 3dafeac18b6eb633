package models

import "time"

// DefaultThreshold is the attendance percentage a collection requires unless configured otherwise.
const DefaultThreshold = 75

// Collection is a user's term timetable: a date range plus an attendance threshold.
type Collection struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Shared    bool      `db:"shared" json:"shared"`
	Threshold int       `db:"threshold" json:"threshold"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether the date lies inside the collection's range.
func (c *Collection) Contains(d time.Time) bool {
	day := d.Format("2006-01-02")
	return day >= c.StartDate.Format("2006-01-02") && day <= c.EndDate.Format("2006-01-02")
}

// CollectionTree is a collection together with the courses and schedules it owns.
type CollectionTree struct {
	Collection Collection   `json:"collection"`
	Courses    []CourseTree `json:"courses"`
}

// CourseTree is a course with its weekly schedules.
type CourseTree struct {
	Course    Course     `json:"course"`
	Schedules []Schedule `json:"schedules"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
