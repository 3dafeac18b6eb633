package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

type courseService interface {
	AddCourse(ctx context.Context, ownerID, collectionID string, req dto.AddCourseRequest) (*dto.CourseResponse, error)
	AddSchedule(ctx context.Context, ownerID, courseID string, req dto.ScheduleRequest) (*dto.CourseResponse, error)
}

// CourseHandler exposes course and schedule endpoints.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// AddCourse godoc
// @Summary Add course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body dto.AddCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /collections/{id}/courses [post]
func (h *CourseHandler) AddCourse(c *gin.Context) {
	var req dto.AddCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.AddCourse(c.Request.Context(), ownerFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// AddSchedule godoc
// @Summary Add weekly slot to course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/schedules [post]
func (h *CourseHandler) AddSchedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.AddSchedule(c.Request.Context(), ownerFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}
