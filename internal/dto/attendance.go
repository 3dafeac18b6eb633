package dto

import (
	"time"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

// StatsResponse lists per-course statistics of a collection.
type StatsResponse struct {
	CollectionID string               `json:"collection_id"`
	Threshold    int                  `json:"threshold"`
	AsOf         string               `json:"as_of"`
	Courses      []models.CourseStats `json:"courses"`
	Cached       bool                 `json:"-"`
}

// DayViewResponse lists the sessions of a collection held on one date.
type DayViewResponse struct {
	CollectionID string              `json:"collection_id"`
	Date         string              `json:"date"`
	Sessions     []models.DaySession `json:"sessions"`
}

// UpdateSessionRequest changes a session's status.
type UpdateSessionRequest struct {
	Status string `json:"status" validate:"required,session_status"`
}

// CreateSessionRequest adds a session manually.
type CreateSessionRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Status string `json:"status" validate:"omitempty,session_status"`
}

// CreateSessionResponse reports whether a new row was written.
type CreateSessionResponse struct {
	Session models.Session `json:"session"`
	Created bool           `json:"created"`
}

// MarkTodayResult summarises a mark-today run.
type MarkTodayResult struct {
	Date      time.Time `json:"date"`
	Skipped   bool      `json:"skipped"`
	Scheduled int       `json:"scheduled"`
	Inserted  int       `json:"inserted"`
}

// ExportFormat selects the export renderer.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered statistics document.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
