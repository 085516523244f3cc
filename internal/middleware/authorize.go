package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/security"
)

// RequireRole aborts with 401 when no user is logged in and 403 when the
// logged-in user's role is below minRole.
func RequireRole(minRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := security.RequireRole(SessionFrom(c.Request.Context()), minRole)
		if err == nil {
			c.Next()
			return
		}

		status := http.StatusForbidden
		if apperr.Is(err, apperr.CodeUnauthorized) {
			status = http.StatusUnauthorized
		}
		c.AbortWithStatusJSON(status, gin.H{"error_message": apperr.Message(err)})
	}
}
