package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"webrecorder/api/internal/models"
)

type fakeResolver struct {
	sessions map[string]*models.Session
	err      error
}

func (f fakeResolver) Resolve(_ context.Context, token string) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[token], nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(zerolog.Nop()), Recovery())
	router.Use(handlers...)
	router.GET("/whoami", func(c *gin.Context) {
		session := SessionFrom(c.Request.Context())
		if session == nil {
			c.JSON(http.StatusOK, gin.H{"username": ""})
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": session.Username})
	})
	return router
}

func TestRequestID(t *testing.T) {
	router := newRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestSession(t *testing.T) {
	resolver := fakeResolver{sessions: map[string]*models.Session{
		"good": {ID: "s1", Username: "someuser", Role: models.UserRoleArchivist},
	}}
	router := newRouter(Session("__wr_sesh", resolver))

	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{name: "no cookie", want: `{"username":""}`},
		{name: "unknown token", cookie: "stale", want: `{"username":""}`},
		{name: "live session", cookie: "good", want: `{"username":"someuser"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "__wr_sesh", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestSession_StoreFailure(t *testing.T) {
	router := newRouter(Session("__wr_sesh", fakeResolver{err: errors.New("redis down")}))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "__wr_sesh", Value: "good"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireRole(t *testing.T) {
	resolver := fakeResolver{sessions: map[string]*models.Session{
		"member": {ID: "s1", Username: "someuser", Role: models.UserRoleArchivist},
		"admin":  {ID: "s2", Username: "boss", Role: models.UserRoleAdmin},
		"anon":   {ID: "s3", Username: "temp-abc", Role: models.UserRoleAnon, Anon: true},
	}}
	router := newRouter(Session("__wr_sesh", resolver), RequireRole(models.UserRoleAdmin))

	tests := []struct {
		cookie string
		status int
	}{
		{cookie: "", status: http.StatusUnauthorized},
		{cookie: "anon", status: http.StatusUnauthorized},
		{cookie: "member", status: http.StatusForbidden},
		{cookie: "admin", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.cookie, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "__wr_sesh", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	router := newRouter(CORS([]string{"https://webrecorder.test"}))

	req := httptest.NewRequest(http.MethodOptions, "/whoami", nil)
	req.Header.Set("Origin", "https://webrecorder.test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://webrecorder.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	router := newRouter()
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_server_error"}`, rec.Body.String())
}
