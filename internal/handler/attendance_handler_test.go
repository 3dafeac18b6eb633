package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

type attendanceServiceMock struct {
	created    bool
	updateErr  error
	lastDate   string
	lastFormat dto.ExportFormat
}

func (m *attendanceServiceMock) Stats(_ context.Context, _, collectionID string) (*dto.StatsResponse, error) {
	return &dto.StatsResponse{
		CollectionID: collectionID,
		Threshold:    75,
		Courses:      []models.CourseStats{{CourseID: "math", Name: "Math", Percentage: 63, BunksAvailable: -1}},
		Cached:       true,
	}, nil
}

func (m *attendanceServiceMock) DayView(_ context.Context, _, collectionID, date string) (*dto.DayViewResponse, error) {
	m.lastDate = date
	return &dto.DayViewResponse{CollectionID: collectionID, Date: date, Sessions: []models.DaySession{}}, nil
}

func (m *attendanceServiceMock) UpdateStatus(_ context.Context, _, sessionID string, req dto.UpdateSessionRequest) (*models.Session, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.Session{ID: sessionID, Status: models.SessionStatus(req.Status)}, nil
}

func (m *attendanceServiceMock) CreateSession(_ context.Context, _, courseID string, req dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	return &dto.CreateSessionResponse{Session: models.Session{ID: "s1", CourseID: courseID}, Created: m.created}, nil
}

func (m *attendanceServiceMock) ListCourseSessions(_ context.Context, _, _ string) ([]models.Session, error) {
	return []models.Session{{ID: "s1"}, {ID: "s2"}}, nil
}

func (m *attendanceServiceMock) Export(_ context.Context, _, _ string, format dto.ExportFormat) (*dto.ExportFile, error) {
	m.lastFormat = format
	return &dto.ExportFile{Filename: "sem_1_2024-02-10.csv", ContentType: "text/csv", Data: []byte("Course\nMath\n")}, nil
}

func TestAttendanceHandlerStats(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})
	c, w := newTestContext(t, http.MethodGet, "/collections/col-1/stats", nil)
	c.Params = gin.Params{{Key: "id", Value: "col-1"}}

	h.Stats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	courses := data["courses"].([]interface{})
	first := courses[0].(map[string]interface{})
	assert.Equal(t, "Math", first["name"])
	assert.Equal(t, float64(63), first["percentage"])
	assert.Equal(t, float64(-1), first["bunks_available"])
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
}

func TestAttendanceHandlerDayRequiresDate(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)

	c, w := newTestContext(t, http.MethodGet, "/collections/col-1/day", nil)
	c.Params = gin.Params{{Key: "id", Value: "col-1"}}
	h.Day(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(t, http.MethodGet, "/collections/col-1/day?date=2024-02-05", nil)
	c.Params = gin.Params{{Key: "id", Value: "col-1"}}
	h.Day(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-02-05", svc.lastDate)
}

func TestAttendanceHandlerCreateSessionStatusCodes(t *testing.T) {
	svc := &attendanceServiceMock{created: true}
	h := NewAttendanceHandler(svc)

	c, w := newTestContext(t, http.MethodPost, "/courses/math/sessions", dto.CreateSessionRequest{Date: "2024-02-05"})
	c.Params = gin.Params{{Key: "id", Value: "math"}}
	h.CreateSession(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.created = false
	c, w = newTestContext(t, http.MethodPost, "/courses/math/sessions", dto.CreateSessionRequest{Date: "2024-02-05"})
	c.Params = gin.Params{{Key: "id", Value: "math"}}
	h.CreateSession(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAttendanceHandlerUpdateSessionInvalidStatus(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{updateErr: appErrors.ErrInvalidStatus})
	c, w := newTestContext(t, http.MethodPatch, "/sessions/s1", dto.UpdateSessionRequest{Status: "late"})
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.UpdateSession(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errPayload := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_STATUS", errPayload["code"])
}

func TestAttendanceHandlerExport(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)
	c, w := newTestContext(t, http.MethodGet, "/collections/col-1/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "col-1"}}

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ExportFormatCSV, svc.lastFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sem_1_2024-02-10.csv")
	assert.Equal(t, "Course\nMath\n", w.Body.String())
}

func TestAttendanceHandlerListSessions(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})
	c, w := newTestContext(t, http.MethodGet, "/courses/math/sessions", nil)
	c.Params = gin.Params{{Key: "id", Value: "math"}}

	h.ListSessions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope(t, w)["data"], 2)
}
