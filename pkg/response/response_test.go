package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, map[string]int{"present": 3}, nil, map[string]interface{}{})

	assert.JSONEq(t, `{"data":{"present":3}}`, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestFileSetsAttachmentHeaders(t *testing.T) {
	c, w := newContext()
	File(c, "sem_1_2024-02-10.pdf", "application/pdf", []byte("%PDF"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sem_1_2024-02-10.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())
}

func TestErrorRecordsServerFailuresOnContext(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error","status":500}}`, w.Body.String())
	assert.Len(t, c.Errors, 1)

	c, w = newContext()
	Error(c, appErrors.ErrNotShared)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, c.Errors)
}
