package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

// HeaderUserID carries the caller identity set by the fronting gateway.
const HeaderUserID = "X-User-ID"

// ContextUserKey is the gin context key storing the caller's user id.
const ContextUserKey = "currentUser"

// Identity requires the X-User-ID header and stores it on the context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing "+HeaderUserID+" header"))
			c.Abort()
			return
		}
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// UserID returns the caller identity stored by Identity.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
