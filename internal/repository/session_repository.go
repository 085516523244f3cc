package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"webrecorder/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores session records under s:<id> with an expiry at
// the session's ExpiresAt, and indexes them per user.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	key := sessionKey(session.ID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"id":         session.ID,
			"username":   session.Username,
			"role":       string(session.Role),
			"anon":       formatBool(session.Anon),
			"remember":   formatBool(session.Remember),
			"created_at": formatTime(session.CreatedAt),
			"expires_at": formatTime(session.ExpiresAt),
		})
		pipe.ExpireAt(ctx, key, session.ExpiresAt)
		pipe.SAdd(ctx, sessionIndexKey(session.Username), session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return models.Session{}, ErrSessionNotFound
	}

	var session models.Session
	if err := decodeHash(fields, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	key := sessionKey(id)

	username, err := r.client.HGet(ctx, key, "username").Result()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	var removed *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, key)
		pipe.SRem(ctx, sessionIndexKey(username), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed.Val() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) CountByUser(ctx context.Context, username string) (int, error) {
	n, err := r.client.SCard(ctx, sessionIndexKey(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("count sessions %s: %w", username, err)
	}
	return int(n), nil
}

// PruneIndex drops index entries whose session record has expired. It returns
// the number of entries removed.
func (r *SessionRepository) PruneIndex(ctx context.Context) (int, error) {
	removed := 0

	iter := r.client.Scan(ctx, 0, "u:*:sessions", 200).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		ids, err := r.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return removed, fmt.Errorf("prune %s: %w", indexKey, err)
		}

		var stale []any
		for _, id := range ids {
			n, err := r.client.Exists(ctx, sessionKey(id)).Result()
			if err != nil {
				return removed, fmt.Errorf("prune %s: %w", indexKey, err)
			}
			if n == 0 {
				stale = append(stale, id)
			}
		}
		if len(stale) == 0 {
			continue
		}
		if err := r.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return removed, fmt.Errorf("prune %s: %w", indexKey, err)
		}
		removed += len(stale)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan session indexes: %w", err)
	}
	return removed, nil
}
