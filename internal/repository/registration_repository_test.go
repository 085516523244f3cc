package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webrecorder/api/internal/models"
)

func TestRegistrationRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRegistrationRepository(client)

	pending := models.PendingRegistration{
		Code:         "code-1",
		Username:     "someuser",
		Email:        "test@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, pending, 48*time.Hour))
	assert.Equal(t, 48*time.Hour, mr.TTL(registrationKey("code-1")))

	assert.ErrorIs(t, repo.Create(ctx, pending, time.Hour), ErrRegistrationExists)

	got, err := repo.Consume(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "someuser", got.Username)
	assert.Equal(t, "test@example.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.WithinDuration(t, pending.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = repo.Consume(ctx, "code-1")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRegistrationRepository(client)

	require.NoError(t, repo.Create(ctx, models.PendingRegistration{Code: "code-1", Username: "someuser"}, time.Hour))

	const n = 12
	results := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = repo.Consume(ctx, "code-1")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, ErrRegistrationNotFound)
	}
	assert.Equal(t, 1, winners)
}

func TestRegistrationRepository_Expires(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRegistrationRepository(client)

	require.NoError(t, repo.Create(ctx, models.PendingRegistration{Code: "code-1", Username: "someuser"}, time.Hour))
	mr.FastForward(time.Hour)

	_, err := repo.Consume(ctx, "code-1")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}
