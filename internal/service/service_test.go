package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"webrecorder/api/internal/config"
	"webrecorder/api/internal/mail"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/repository"
	"webrecorder/api/internal/security"
)

var fastParams = security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Confirmation
	err  error
}

func (f *fakeSender) SendConfirmationEmail(_ context.Context, msg mail.Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) last() mail.Confirmation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return mail.Confirmation{}
	}
	return f.sent[len(f.sent)-1]
}

type testEnv struct {
	mr           *miniredis.Miniredis
	cfg          *config.AppConfig
	accounts     *repository.AccountRepository
	sessionRepo  *repository.SessionRepository
	sessions     *SessionService
	registration *RegistrationService
	facade       *AccountService
	vault        *security.PasswordVault
	sender       *fakeSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Default()
	cfg.Security.SessionSecret = "test-secret"
	cfg.Mail.BaseURL = "https://webrecorder.test/"

	log := zerolog.Nop()
	vault := security.NewPasswordVaultWithParams(fastParams)
	accounts := repository.NewAccountRepository(client, cfg.Accounts.ReservedNames, models.Collection{
		ID:    cfg.Accounts.DefaultCollID,
		Title: cfg.Accounts.DefaultCollTitle,
		Desc:  cfg.Accounts.DefaultCollDesc,
	})
	sessionRepo := repository.NewSessionRepository(client)
	sessions, err := NewSessionService(accounts, sessionRepo, vault, cfg, log)
	require.NoError(t, err)

	sender := &fakeSender{}
	registration := NewRegistrationService(accounts, repository.NewRegistrationRepository(client), sessions, vault, sender, cfg, log)
	facade := NewAccountService(accounts, sessions, registration, NewQuotaLedger(accounts), vault, log)

	return &testEnv{
		mr:           mr,
		cfg:          cfg,
		accounts:     accounts,
		sessionRepo:  sessionRepo,
		sessions:     sessions,
		registration: registration,
		facade:       facade,
		vault:        vault,
		sender:       sender,
	}
}

// register runs the full registration flow and returns the confirmed
// session.
func (e *testEnv) register(t *testing.T, username, email, password string) ConfirmResult {
	t.Helper()
	ctx := context.Background()

	res, err := e.registration.Begin(ctx, RegisterInput{
		Email:           email,
		Username:        username,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)

	confirmed, err := e.registration.Confirm(ctx, res.Code, res.Code, nil)
	require.NoError(t, err)
	return confirmed
}

// loginAs creates a permanent account with role directly in the store and
// returns a logged-in session for it.
func (e *testEnv) loginAs(t *testing.T, username string, role models.UserRole) *models.Session {
	t.Helper()
	ctx := context.Background()

	hash, err := e.vault.Hash("Password1")
	require.NoError(t, err)
	account, err := e.accounts.CreatePermanent(ctx, repository.NewAccount{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		MaxSize:      e.cfg.Accounts.DefaultMaxSize,
	})
	require.NoError(t, err)

	auth, err := e.sessions.StartSession(ctx, account, false, nil)
	require.NoError(t, err)
	return auth.Session
}

var errMailDown = errors.New("mail relay down")
