package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/models"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		session *models.Session
		min     models.UserRole
		code    string
	}{
		{name: "no session", session: nil, min: models.UserRoleArchivist, code: apperr.CodeUnauthorized},
		{name: "anon session", session: &models.Session{Username: "temp-abc", Anon: true, Role: models.UserRoleAnon}, min: models.UserRoleArchivist, code: apperr.CodeUnauthorized},
		{name: "archivist ok", session: &models.Session{Username: "bob", Role: models.UserRoleArchivist}, min: models.UserRoleArchivist},
		{name: "admin ok", session: &models.Session{Username: "root", Role: models.UserRoleAdmin}, min: models.UserRoleArchivist},
		{name: "archivist not admin", session: &models.Session{Username: "bob", Role: models.UserRoleArchivist}, min: models.UserRoleAdmin, code: apperr.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.session, tt.min)
			assert.Equal(t, tt.code, apperr.Code(err))
		})
	}
}

func TestRequireOwnerOrAdmin(t *testing.T) {
	bob := &models.Session{Username: "bob", Role: models.UserRoleArchivist}
	admin := &models.Session{Username: "root", Role: models.UserRoleAdmin}

	assert.NoError(t, RequireOwnerOrAdmin(bob, "bob"))
	assert.NoError(t, RequireOwnerOrAdmin(admin, "bob"))
	assert.Equal(t, apperr.CodeForbidden, apperr.Code(RequireOwnerOrAdmin(bob, "alice")))
	assert.Equal(t, apperr.CodeUnauthorized, apperr.Code(RequireOwnerOrAdmin(nil, "bob")))
}
