package repository

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"webrecorder/api/internal/models"
)

var testDefaultCollection = models.Collection{
	ID:    "default-collection",
	Title: "Default Collection",
	Desc:  "*This is your first collection.*",
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestAccounts(t *testing.T) (*miniredis.Miniredis, *AccountRepository) {
	t.Helper()
	mr, client := newTestRedis(t)
	return mr, NewAccountRepository(client, []string{"admin", "api", "Login"}, testDefaultCollection)
}
