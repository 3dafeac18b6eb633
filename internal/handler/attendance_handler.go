package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/middleware"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

type attendanceService interface {
	Stats(ctx context.Context, ownerID, collectionID string) (*dto.StatsResponse, error)
	DayView(ctx context.Context, ownerID, collectionID, date string) (*dto.DayViewResponse, error)
	UpdateStatus(ctx context.Context, ownerID, sessionID string, req dto.UpdateSessionRequest) (*models.Session, error)
	CreateSession(ctx context.Context, ownerID, courseID string, req dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	ListCourseSessions(ctx context.Context, ownerID, courseID string) ([]models.Session, error)
	Export(ctx context.Context, ownerID, collectionID string, format dto.ExportFormat) (*dto.ExportFile, error)
}

// AttendanceHandler exposes session and statistics endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Stats godoc
// @Summary Attendance statistics
// @Description Per-course attendance percentage and remaining bunks
// @Tags Attendance
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, stats.Cached)
	middleware.SetAsOf(c, stats.AsOf)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Day godoc
// @Summary Sessions on a date
// @Tags Attendance
// @Produce json
// @Param id path string true "Collection ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/day [get]
func (h *AttendanceHandler) Day(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	view, err := h.service.DayView(c.Request.Context(), ownerFromContext(c), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Export statistics
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Collection ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /collections/{id}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	format := dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV)))
	file, err := h.service.Export(c.Request.Context(), ownerFromContext(c), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// ListSessions godoc
// @Summary List course sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions [get]
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	sessions, err := h.service.ListCourseSessions(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// CreateSession godoc
// @Summary Add session manually
// @Description Returns 201 when a session was created and 200 when one already existed for the date
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions [post]
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.CreateSession(c.Request.Context(), ownerFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Created {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}

// UpdateSession godoc
// @Summary Update session status
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [patch]
func (h *AttendanceHandler) UpdateSession(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.UpdateStatus(c.Request.Context(), ownerFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
