package security

import (
	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/models"
)

// RequireRole guards operations that need a logged-in session of at least
// minRole. Anonymous sessions are treated as logged out.
func RequireRole(session *models.Session, minRole models.UserRole) error {
	if !session.LoggedIn() {
		return apperr.Unauthorized("Login required")
	}
	if session.Role.Level() < minRole.Level() {
		return apperr.Forbidden("Permission denied")
	}
	return nil
}

// RequireOwnerOrAdmin allows access to a user's resources by that user or an admin.
func RequireOwnerOrAdmin(session *models.Session, username string) error {
	if !session.LoggedIn() {
		return apperr.Unauthorized("Login required")
	}
	if session.Username == username || session.Role == models.UserRoleAdmin {
		return nil
	}
	return apperr.Forbidden("Permission denied")
}
