package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webrecorder/api/internal/models"
)

type sessionKey struct{}

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Session loads the caller's session from the cookie named cookieName. A
// missing or dead session is not an error; handlers decide what to do with
// a nil session.
func Session(cookieName string, resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("resolve session failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}
		if session != nil {
			c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
		}

		c.Next()
	}
}

func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFrom returns the session attached by Session, or nil.
func SessionFrom(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey{}).(*models.Session)
	return session
}
