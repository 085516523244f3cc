package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/security"
)

func TestSessionService_LoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "someuser", "test@example.com", "Password1")

	temp, err := env.accounts.CreateTemp(ctx, 100, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "someuser", password: "Password2"},
		{name: "unknown user", username: "someuser2", password: "Password2"},
		{name: "temp account", username: temp.Username, password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.sessions.Login(ctx, LoginInput{Username: tt.username, Password: tt.password})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
			assert.Equal(t, MsgInvalidLogin, apperr.Message(err))
			assert.Empty(t, res.Token)
		})
	}
}

func TestSessionService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "someuser", "test@example.com", "Password1")

	t.Run("short session", func(t *testing.T) {
		res, err := env.sessions.Login(ctx, LoginInput{Username: "someuser", Password: "Password1"})
		require.NoError(t, err)

		assert.Equal(t, SessionInfo{Username: "someuser", Role: models.UserRoleArchivist, CollCount: 1}, res.Info)
		assert.NotEmpty(t, res.Token)
		assert.False(t, res.Session.Remember)
		assert.InDelta(t, env.cfg.Security.SessionTTL.Seconds(), env.mr.TTL("s:"+res.Session.ID).Seconds(), 2)

		account, err := env.accounts.Get(ctx, "someuser")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), account.LastLogin, time.Minute)
	})

	t.Run("remember me", func(t *testing.T) {
		res, err := env.sessions.Login(ctx, LoginInput{Username: "someuser", Password: "Password1", RememberMe: true})
		require.NoError(t, err)

		assert.True(t, res.Session.Remember)
		assert.InDelta(t, env.cfg.Security.RememberTTL.Seconds(), env.mr.TTL("s:"+res.Session.ID).Seconds(), 2)
		assert.WithinDuration(t, time.Now().Add(env.cfg.Security.RememberTTL), res.Expires, time.Minute)
	})
}

func TestSessionService_LoginReplacesPreviousSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	confirmed := env.register(t, "someuser", "test@example.com", "Password1")

	res, err := env.sessions.Login(ctx, LoginInput{
		Username: "someuser",
		Password: "Password1",
		Current:  confirmed.Auth.Session,
	})
	require.NoError(t, err)

	old, err := env.sessions.Resolve(ctx, confirmed.Auth.Token)
	require.NoError(t, err)
	assert.Nil(t, old)

	current, err := env.sessions.Resolve(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, res.Session.ID, current.ID)
}

func TestSessionService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	confirmed := env.register(t, "someuser", "test@example.com", "Password1")

	res, err := env.sessions.Login(ctx, LoginInput{
		Username: "someuser",
		Password: "Password1",
		Current:  confirmed.Auth.Session,
	})
	require.NoError(t, err)

	count, err := env.sessionRepo.CountByUser(ctx, "someuser")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, env.sessions.Logout(ctx, res.Session))
	require.NoError(t, env.sessions.Logout(ctx, res.Session))
	require.NoError(t, env.sessions.Logout(ctx, nil))

	session, err := env.sessions.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Nil(t, session)

	count, err = env.sessionRepo.CountByUser(ctx, "someuser")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionService_ResolveRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	confirmed := env.register(t, "someuser", "test@example.com", "Password1")
	session := confirmed.Auth.Session

	forged, err := security.GenerateSessionToken("other-secret", session.ID, session.Username, false, session.ExpiresAt)
	require.NoError(t, err)
	mismatched, err := security.GenerateSessionToken(env.cfg.Security.SessionSecret, session.ID, "intruder", false, session.ExpiresAt)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong secret":   forged,
		"wrong username": mismatched,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := env.sessions.Resolve(ctx, token)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}

	got, err := env.sessions.Resolve(ctx, confirmed.Auth.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "someuser", got.Username)
}

func TestSessionService_CurrentAnonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.sessions.Current(ctx, nil)
	require.NoError(t, err)
	assert.True(t, first.Info.Anon)
	assert.Empty(t, first.Info.Role)
	assert.Zero(t, first.Info.CollCount)
	assert.Contains(t, first.Info.Username, "temp-")
	assert.NotEmpty(t, first.Token)
	assert.False(t, first.Session.LoggedIn())

	tempKey := "u:" + first.Info.Username + ":info"
	assert.Equal(t, env.cfg.Accounts.TempTTL, env.mr.TTL(tempKey))

	env.mr.FastForward(time.Hour)

	resolved, err := env.sessions.Resolve(ctx, first.Token)
	require.NoError(t, err)
	require.NotNil(t, resolved)

	again, err := env.sessions.Current(ctx, resolved)
	require.NoError(t, err)
	assert.Equal(t, first.Info.Username, again.Info.Username)
	assert.Empty(t, again.Token, "reused identity needs no new cookie")
	assert.Equal(t, env.cfg.Accounts.TempTTL-time.Hour, env.mr.TTL(tempKey), "temp ttl must not be refreshed")

	env.mr.FastForward(env.cfg.Accounts.TempTTL)

	expired, err := env.sessions.Resolve(ctx, first.Token)
	require.NoError(t, err)
	assert.Nil(t, expired)

	fresh, err := env.sessions.Current(ctx, expired)
	require.NoError(t, err)
	assert.NotEqual(t, first.Info.Username, fresh.Info.Username)
	assert.NotEmpty(t, fresh.Token)
}

func TestSessionService_CurrentLoggedIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	confirmed := env.register(t, "someuser", "test@example.com", "Password1")

	res, err := env.sessions.Current(ctx, confirmed.Auth.Session)
	require.NoError(t, err)
	assert.Equal(t, SessionInfo{Username: "someuser", Role: models.UserRoleArchivist, CollCount: 1}, res.Info)
	assert.Empty(t, res.Token)
}
