package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"webrecorder/api/internal/ids"
	"webrecorder/api/internal/models"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username exists")
	ErrEmailTaken         = errors.New("email exists")
	ErrCollectionExists   = errors.New("collection exists")
	ErrCollectionNotFound = errors.New("collection not found")

	errTempCollision = errors.New("temp username collision")
)

const (
	maxTxRetries    = 10
	maxTempAttempts = 10
)

type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	Role         models.UserRole
	MaxSize      int64
}

type DeletedAccount struct {
	Username    string
	Collections int
	Sessions    int
}

type AccountRepository struct {
	client            *redis.Client
	reserved          map[string]struct{}
	defaultCollection models.Collection
}

// NewAccountRepository stores accounts as Redis hashes. reservedNames are
// never available for registration; defaultCollection is the template used
// by PromoteAccount.
func NewAccountRepository(client *redis.Client, reservedNames []string, defaultCollection models.Collection) *AccountRepository {
	reserved := make(map[string]struct{}, len(reservedNames))
	for _, name := range reservedNames {
		reserved[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &AccountRepository{
		client:            client,
		reserved:          reserved,
		defaultCollection: defaultCollection,
	}
}

func (r *AccountRepository) IsReserved(name string) bool {
	_, ok := r.reserved[strings.ToLower(name)]
	return ok
}

func (r *AccountRepository) CreateTemp(ctx context.Context, maxSize int64, ttl time.Duration) (models.Account, error) {
	for attempt := 0; attempt < maxTempAttempts; attempt++ {
		name, err := ids.TempUsername()
		if err != nil {
			return models.Account{}, err
		}

		now := time.Now().UTC()
		account := models.Account{
			Username:  name,
			Role:      models.UserRoleAnon,
			MaxSize:   maxSize,
			CreatedAt: now,
			UpdatedAt: now,
			TTL:       ttl,
		}

		key := userKey(name)
		err = r.client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return errTempCollision
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, accountFields(account))
				pipe.Expire(ctx, key, ttl)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return account, nil
		case errors.Is(err, errTempCollision), errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return models.Account{}, fmt.Errorf("create temp account: %w", err)
		}
	}
	return models.Account{}, fmt.Errorf("create temp account: no free name after %d attempts", maxTempAttempts)
}

// IsUsernameAvailable reports false for reserved names and names bound to a
// permanent account. Live temp accounts do not block a name.
//
// TODO: a registration for a name equal to a live temp account passes here
// and only fails at confirmation (CreatePermanent refuses the existing key).
// Decide whether temp-<random> names should be rejected up front.
func (r *AccountRepository) IsUsernameAvailable(ctx context.Context, name string) (bool, error) {
	if r.IsReserved(name) {
		return false, nil
	}

	role, err := r.client.HGet(ctx, userKey(name), "role").Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return models.UserRole(role) == models.UserRoleAnon, nil
}

func (r *AccountRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	n, err := r.client.HExists(ctx, emailIndexKey, normalizeEmail(email)).Result()
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n, nil
}

// CreatePermanent inserts the account and its email index entry in one
// transaction guarded by WATCH on both keys. A concurrent loser retries,
// observes the winner, and gets ErrUsernameTaken or ErrEmailTaken.
func (r *AccountRepository) CreatePermanent(ctx context.Context, input NewAccount) (models.Account, error) {
	account, _, err := r.createPermanent(ctx, input, nil)
	return account, err
}

// PromoteAccount is CreatePermanent plus the owner's default collection,
// written in the same MULTI so the account never exists without it.
func (r *AccountRepository) PromoteAccount(ctx context.Context, input NewAccount) (models.Account, models.Collection, error) {
	coll := r.defaultCollection
	coll.Owner = input.Username
	coll.Size = 0
	coll.CreatedAt = time.Now().UTC()
	return r.createPermanent(ctx, input, &coll)
}

func (r *AccountRepository) createPermanent(ctx context.Context, input NewAccount, coll *models.Collection) (models.Account, models.Collection, error) {
	now := time.Now().UTC()
	email := normalizeEmail(input.Email)
	account := models.Account{
		Username:     input.Username,
		Email:        email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		MaxSize:      input.MaxSize,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if account.Role == "" {
		account.Role = models.UserRoleArchivist
	}

	key := userKey(input.Username)
	listKey := collectionListKey(input.Username)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}

		taken, err := tx.HExists(ctx, emailIndexKey, email).Result()
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, accountFields(account))
			pipe.HSet(ctx, emailIndexKey, email, input.Username)
			if coll != nil {
				pipe.Del(ctx, listKey)
				pipe.HSet(ctx, collectionKey(coll.Owner, coll.ID), collectionFields(*coll))
				pipe.RPush(ctx, listKey, coll.ID)
			}
			return nil
		})
		return err
	}

	if err := r.withRetry(ctx, txf, key, emailIndexKey, listKey); err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			return models.Account{}, models.Collection{}, err
		}
		return models.Account{}, models.Collection{}, fmt.Errorf("create account %s: %w", input.Username, err)
	}
	if coll == nil {
		return account, models.Collection{}, nil
	}
	return account, *coll, nil
}

func (r *AccountRepository) Get(ctx context.Context, username string) (models.Account, error) {
	key := userKey(username)

	var (
		fields *redis.MapStringStringCmd
		ttl    *redis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %s: %w", username, err)
	}
	if len(fields.Val()) == 0 {
		return models.Account{}, ErrAccountNotFound
	}

	account, err := decodeAccount(fields.Val())
	if err != nil {
		return models.Account{}, err
	}
	if d := ttl.Val(); d > 0 {
		account.TTL = d
	}
	return account, nil
}

// Update applies mutate under optimistic locking. Username and email are
// immutable, updated_at is always bumped, and the key's expiry is untouched.
func (r *AccountRepository) Update(ctx context.Context, username string, mutate func(*models.Account) error) (models.Account, error) {
	key := userKey(username)
	var updated models.Account

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return ErrAccountNotFound
		}
		account, err := decodeAccount(fields)
		if err != nil {
			return err
		}

		if err := mutate(&account); err != nil {
			return err
		}
		account.Username = username
		account.Email = fields["email"]
		account.UpdatedAt = time.Now().UTC()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, accountFields(account))
			return nil
		})
		if err == nil {
			updated = account
		}
		return err
	}

	if err := r.withRetry(ctx, txf, key); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return models.Account{}, err
		}
		return models.Account{}, fmt.Errorf("update account %s: %w", username, err)
	}
	return updated, nil
}

// Delete removes the account with its collections, email index entry and
// sessions in a single transaction.
func (r *AccountRepository) Delete(ctx context.Context, username string) (DeletedAccount, error) {
	key := userKey(username)
	listKey := collectionListKey(username)
	indexKey := sessionIndexKey(username)
	var deleted DeletedAccount

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return ErrAccountNotFound
		}

		collIDs, err := tx.LRange(ctx, listKey, 0, -1).Result()
		if err != nil {
			return err
		}
		sessionIDs, err := tx.SMembers(ctx, indexKey).Result()
		if err != nil {
			return err
		}

		email := normalizeEmail(fields["email"])
		ownsEmail := false
		if email != "" {
			owner, err := tx.HGet(ctx, emailIndexKey, email).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			ownsEmail = owner == username
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			keys := []string{key, listKey, indexKey}
			for _, id := range collIDs {
				keys = append(keys, collectionKey(username, id))
			}
			for _, sid := range sessionIDs {
				keys = append(keys, sessionKey(sid))
			}
			pipe.Del(ctx, keys...)
			if ownsEmail {
				pipe.HDel(ctx, emailIndexKey, email)
			}
			return nil
		})
		if err == nil {
			deleted = DeletedAccount{
				Username:    username,
				Collections: len(collIDs),
				Sessions:    len(sessionIDs),
			}
		}
		return err
	}

	if err := r.withRetry(ctx, txf, key, listKey, indexKey, emailIndexKey); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return DeletedAccount{}, err
		}
		return DeletedAccount{}, fmt.Errorf("delete account %s: %w", username, err)
	}
	return deleted, nil
}

func (r *AccountRepository) CreateCollection(ctx context.Context, coll models.Collection) (models.Collection, error) {
	if coll.CreatedAt.IsZero() {
		coll.CreatedAt = time.Now().UTC()
	}
	key := collectionKey(coll.Owner, coll.ID)
	owner := userKey(coll.Owner)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, owner).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAccountNotFound
		}
		n, err = tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCollectionExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, collectionFields(coll))
			pipe.RPush(ctx, collectionListKey(coll.Owner), coll.ID)
			return nil
		})
		return err
	}

	if err := r.withRetry(ctx, txf, owner, key); err != nil {
		if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrCollectionExists) {
			return models.Collection{}, err
		}
		return models.Collection{}, fmt.Errorf("create collection %s/%s: %w", coll.Owner, coll.ID, err)
	}
	return coll, nil
}

func (r *AccountRepository) ListCollections(ctx context.Context, owner string) ([]models.Collection, error) {
	collIDs, err := r.client.LRange(ctx, collectionListKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list collections %s: %w", owner, err)
	}
	if len(collIDs) == 0 {
		return []models.Collection{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(collIDs))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range collIDs {
			cmds[i] = pipe.HGetAll(ctx, collectionKey(owner, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load collections %s: %w", owner, err)
	}

	colls := make([]models.Collection, 0, len(cmds))
	for _, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		var coll models.Collection
		if err := decodeHash(cmd.Val(), &coll); err != nil {
			return nil, err
		}
		colls = append(colls, coll)
	}
	return colls, nil
}

func (r *AccountRepository) CountCollections(ctx context.Context, owner string) (int, error) {
	n, err := r.client.LLen(ctx, collectionListKey(owner)).Result()
	if err != nil {
		return 0, fmt.Errorf("count collections %s: %w", owner, err)
	}
	return int(n), nil
}

// AddUsage adjusts the owner's used_size and, when collectionID is set, that
// collection's size. It returns the owner's new used_size.
func (r *AccountRepository) AddUsage(ctx context.Context, owner string, collectionID string, delta int64) (int64, error) {
	key := userKey(owner)
	watched := []string{key}
	if collectionID != "" {
		watched = append(watched, collectionKey(owner, collectionID))
	}

	var used *redis.IntCmd
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAccountNotFound
		}
		if collectionID != "" {
			n, err := tx.Exists(ctx, collectionKey(owner, collectionID)).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrCollectionNotFound
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			used = pipe.HIncrBy(ctx, key, "used_size", delta)
			if collectionID != "" {
				pipe.HIncrBy(ctx, collectionKey(owner, collectionID), "size", delta)
			}
			return nil
		})
		return err
	}

	if err := r.withRetry(ctx, txf, watched...); err != nil {
		if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrCollectionNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("record usage %s: %w", owner, err)
	}
	return used.Val(), nil
}

// ListPermanent returns permanent accounts ordered by username.
func (r *AccountRepository) ListPermanent(ctx context.Context, limit, offset int) ([]models.Account, error) {
	var accounts []models.Account

	iter := r.client.Scan(ctx, 0, "u:*:info", 200).Iterator()
	for iter.Next(ctx) {
		fields, err := r.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		if len(fields) == 0 || models.UserRole(fields["role"]) == models.UserRoleAnon {
			continue
		}
		account, err := decodeAccount(fields)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan accounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Username < accounts[j].Username
	})

	if offset >= len(accounts) {
		return []models.Account{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(accounts) {
		end = len(accounts)
	}
	return accounts[offset:end], nil
}

func (r *AccountRepository) withRetry(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

// normalizeEmail is the form emails are stored and indexed under.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func accountFields(a models.Account) map[string]any {
	return map[string]any{
		"username":      a.Username,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          string(a.Role),
		"desc":          a.Desc,
		"max_size":      a.MaxSize,
		"used_size":     a.UsedSize,
		"created_at":    formatTime(a.CreatedAt),
		"updated_at":    formatTime(a.UpdatedAt),
		"last_login":    formatTime(a.LastLogin),
	}
}

func collectionFields(c models.Collection) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"owner":      c.Owner,
		"title":      c.Title,
		"desc":       c.Desc,
		"size":       c.Size,
		"created_at": formatTime(c.CreatedAt),
	}
}

func decodeAccount(fields map[string]string) (models.Account, error) {
	var account models.Account
	if err := decodeHash(fields, &account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}
