package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/config"
	"webrecorder/api/internal/ids"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/repository"
	"webrecorder/api/internal/security"
)

const MsgInvalidLogin = "Invalid Login. Please Try Again"

// SessionInfo is the identity view returned by login and load_auth. Role is
// empty for anonymous sessions.
type SessionInfo struct {
	Username  string
	Role      models.UserRole
	Anon      bool
	CollCount int
}

// AuthResult carries the session behind a SessionInfo. Token is set only
// when a new session was issued and the client cookie must change.
type AuthResult struct {
	Info    SessionInfo
	Session *models.Session
	Token   string
	Expires time.Time
}

type LoginInput struct {
	Username   string
	Password   string
	RememberMe bool
	Current    *models.Session
}

type SessionService struct {
	accounts  *repository.AccountRepository
	sessions  *repository.SessionRepository
	vault     *security.PasswordVault
	cfg       *config.AppConfig
	log       zerolog.Logger
	dummyHash string
}

func NewSessionService(
	accounts *repository.AccountRepository,
	sessions *repository.SessionRepository,
	vault *security.PasswordVault,
	cfg *config.AppConfig,
	log zerolog.Logger,
) (*SessionService, error) {
	dummyHash, err := vault.Hash("dummy-password-for-unknown-users")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &SessionService{
		accounts:  accounts,
		sessions:  sessions,
		vault:     vault,
		cfg:       cfg,
		log:       log,
		dummyHash: dummyHash,
	}, nil
}

// Login never tells an unknown user apart from a wrong password; unknown
// users still pay for one hash verification.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	account, err := s.accounts.Get(ctx, input.Username)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return AuthResult{}, err
	}
	if err != nil || account.IsTemp() || account.PasswordHash == "" {
		_, _ = s.vault.Verify(input.Password, s.dummyHash)
		return AuthResult{}, apperr.Unauthorized(MsgInvalidLogin)
	}

	ok, err := s.vault.Verify(input.Password, account.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("username", account.Username).Msg("stored password hash unreadable")
		return AuthResult{}, apperr.Unauthorized(MsgInvalidLogin)
	}
	if !ok {
		return AuthResult{}, apperr.Unauthorized(MsgInvalidLogin)
	}

	result, err := s.StartSession(ctx, account, input.RememberMe, input.Current)
	if err != nil {
		return AuthResult{}, err
	}

	if _, err := s.accounts.Update(ctx, account.Username, func(a *models.Account) error {
		a.LastLogin = time.Now().UTC()
		return nil
	}); err != nil {
		s.log.Warn().Err(err).Str("username", account.Username).Msg("update last_login failed")
	}

	s.log.Info().
		Str("username", account.Username).
		Bool("remember", input.RememberMe).
		Msg("user logged in")
	return result, nil
}

// StartSession issues a logged-in session for account, replacing previous.
func (s *SessionService) StartSession(ctx context.Context, account models.Account, remember bool, previous *models.Session) (AuthResult, error) {
	s.revoke(ctx, previous)

	ttl := s.cfg.Security.SessionTTL
	if remember {
		ttl = s.cfg.Security.RememberTTL
	}

	now := time.Now().UTC()
	session := models.Session{
		ID:        ids.New(),
		Username:  account.Username,
		Role:      account.Role,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	token, err := s.issue(ctx, session)
	if err != nil {
		return AuthResult{}, err
	}

	count, err := s.accounts.CountCollections(ctx, account.Username)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		Info: SessionInfo{
			Username:  account.Username,
			Role:      account.Role,
			CollCount: count,
		},
		Session: &session,
		Token:   token,
		Expires: session.ExpiresAt,
	}, nil
}

// Logout invalidates the session. Calling it without a session is a no-op.
func (s *SessionService) Logout(ctx context.Context, current *models.Session) error {
	if current == nil {
		return nil
	}
	err := s.sessions.DeleteByID(ctx, current.ID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	if current.LoggedIn() {
		s.log.Info().Str("username", current.Username).Msg("user logged out")
	}
	return nil
}

// Resolve maps a cookie token to its live session. Invalid, unknown and
// expired tokens all resolve to nil without error.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := security.ParseSessionToken(token, s.cfg.Security.SessionSecret)
	if err != nil {
		return nil, nil
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Username != claims.Username || session.IsExpiredAt(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

// Current describes the caller. Without a live logged-in session the caller
// gets an anonymous identity bound to a temp account, reused while that
// account lives.
func (s *SessionService) Current(ctx context.Context, current *models.Session) (AuthResult, error) {
	if current.LoggedIn() {
		account, err := s.accounts.Get(ctx, current.Username)
		switch {
		case err == nil:
			count, err := s.accounts.CountCollections(ctx, account.Username)
			if err != nil {
				return AuthResult{}, err
			}
			return AuthResult{
				Info: SessionInfo{
					Username:  account.Username,
					Role:      account.Role,
					CollCount: count,
				},
				Session: current,
			}, nil
		case !errors.Is(err, repository.ErrAccountNotFound):
			return AuthResult{}, err
		}
	}

	if current != nil && current.Anon {
		account, err := s.accounts.Get(ctx, current.Username)
		if err == nil && account.IsTemp() {
			return AuthResult{
				Info:    SessionInfo{Username: account.Username, Anon: true},
				Session: current,
			}, nil
		}
		if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
			return AuthResult{}, err
		}
	}

	return s.startAnonymous(ctx, current)
}

func (s *SessionService) startAnonymous(ctx context.Context, previous *models.Session) (AuthResult, error) {
	s.revoke(ctx, previous)

	temp, err := s.accounts.CreateTemp(ctx, s.cfg.Accounts.DefaultMaxSize, s.cfg.Accounts.TempTTL)
	if err != nil {
		return AuthResult{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		ID:        ids.New(),
		Username:  temp.Username,
		Role:      models.UserRoleAnon,
		Anon:      true,
		CreatedAt: now,
		ExpiresAt: now.Add(temp.TTL),
	}
	token, err := s.issue(ctx, session)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Debug().Str("username", temp.Username).Msg("temp account allocated")
	return AuthResult{
		Info:    SessionInfo{Username: temp.Username, Anon: true},
		Session: &session,
		Token:   token,
		Expires: session.ExpiresAt,
	}, nil
}

func (s *SessionService) issue(ctx context.Context, session models.Session) (string, error) {
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return security.GenerateSessionToken(s.cfg.Security.SessionSecret, session.ID, session.Username, session.Anon, session.ExpiresAt)
}

func (s *SessionService) revoke(ctx context.Context, previous *models.Session) {
	if previous == nil {
		return
	}
	if err := s.sessions.DeleteByID(ctx, previous.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		s.log.Warn().Err(err).Str("session_id", previous.ID).Msg("revoke previous session failed")
	}
}
