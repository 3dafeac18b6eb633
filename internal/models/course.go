package models

import "time"

// Course belongs to exactly one collection.
type Course struct {
	ID           string    `db:"id" json:"id"`
	CollectionID string    `db:"collection_id" json:"collection_id"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CourseStats are the derived attendance figures for one course.
type CourseStats struct {
	CourseID       string `json:"course_id"`
	Name           string `json:"name"`
	Percentage     int    `json:"percentage"`
	BunksAvailable int    `json:"bunks_available"`
	Present        int    `json:"present"`
	Bunked         int    `json:"bunked"`
	Cancelled      int    `json:"cancelled"`
	Total          int    `json:"total"`
	MustAttend     int    `json:"must_attend"`
}
