package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"webrecorder/api/internal/service"
)

func (h HandlerSet) secureCookies() bool {
	return h.cfg.Security.SecureCookies || h.cfg.Environment == "production"
}

func (h HandlerSet) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookies(), true)
}

// setSessionCookie writes result's token. Remembered sessions get a
// persistent cookie; all others last for the browser session.
func (h HandlerSet) setSessionCookie(c *gin.Context, result service.AuthResult) {
	if result.Token == "" {
		return
	}
	maxAge := 0
	if result.Session != nil && result.Session.Remember {
		maxAge = int(time.Until(result.Expires) / time.Second)
	}
	h.setCookie(c, h.cfg.Security.CookieName, result.Token, maxAge)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	h.setCookie(c, h.cfg.Security.CookieName, "", -1)
}
