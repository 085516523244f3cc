package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, int64(1000000000), cfg.Accounts.DefaultMaxSize)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, 720*time.Hour, cfg.Security.RememberTTL)
	assert.Equal(t, "default-collection", cfg.Accounts.DefaultCollID)
	assert.Equal(t, "valreg", cfg.Accounts.ValidationCookie)
	assert.Contains(t, cfg.Accounts.ReservedNames, "admin")
	assert.Equal(t, "mail:outbound", cfg.Mail.Stream)
	assert.Equal(t, int64(5), cfg.Queue.MaxDeliveries)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
environment: production
security:
  sessionttl: 2h
  cookiename: custom_sesh
accounts:
  reservednames: "root,system"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 2*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, "custom_sesh", cfg.Security.CookieName)
	assert.Equal(t, []string{"root", "system"}, cfg.Accounts.ReservedNames)
	assert.Equal(t, 720*time.Hour, cfg.Security.RememberTTL)
}
