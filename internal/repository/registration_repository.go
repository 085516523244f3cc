package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"webrecorder/api/internal/models"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationExists   = errors.New("registration code exists")
)

// RegistrationRepository holds pending registrations until they are consumed
// or expire.
type RegistrationRepository struct {
	client *redis.Client
}

func NewRegistrationRepository(client *redis.Client) *RegistrationRepository {
	return &RegistrationRepository{client: client}
}

func (r *RegistrationRepository) Create(ctx context.Context, pending models.PendingRegistration, ttl time.Duration) error {
	key := registrationKey(pending.Code)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrRegistrationExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"code":          pending.Code,
				"username":      pending.Username,
				"email":         pending.Email,
				"password_hash": pending.PasswordHash,
				"created_at":    formatTime(pending.CreatedAt),
			})
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, ErrRegistrationExists) {
			return err
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// Consume reads and deletes the pending registration in one MULTI block.
// Of any number of concurrent callers with the same code, only one sees the
// record; the rest get ErrRegistrationNotFound.
func (r *RegistrationRepository) Consume(ctx context.Context, code string) (models.PendingRegistration, error) {
	key := registrationKey(code)

	var (
		fields  *redis.MapStringStringCmd
		removed *redis.IntCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, key)
		removed = pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return models.PendingRegistration{}, fmt.Errorf("consume registration: %w", err)
	}
	if removed.Val() == 0 || len(fields.Val()) == 0 {
		return models.PendingRegistration{}, ErrRegistrationNotFound
	}

	var pending models.PendingRegistration
	if err := decodeHash(fields.Val(), &pending); err != nil {
		return models.PendingRegistration{}, err
	}
	return pending, nil
}
