// Package cache provides a Redis-backed account directory cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hearth/api/internal/store"
	"github.com/redis/go-redis/v9"
)

// accountData is the cached shape of an account row
type accountData struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CachedAt    time.Time `json:"cached_at"`
}

// AccountDirectory answers account lookups from Redis, falling through to
// the backing store on a miss. View composition hits the directory once per
// distinct contributor, so even a short TTL absorbs most of the load.
type AccountDirectory struct {
	client  *redis.Client
	backing Backing
	prefix  string
	ttl     time.Duration
}

// Backing is the store the cache falls through to
type Backing interface {
	GetAccountByID(ctx context.Context, accountID string) (store.Account, error)
}

// NewAccountDirectory creates a Redis-backed directory from a URL
func NewAccountDirectory(redisURL string, backing Backing) (*AccountDirectory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewAccountDirectoryWithClient(client, backing), nil
}

// NewAccountDirectoryWithClient creates a directory from an existing client
func NewAccountDirectoryWithClient(client *redis.Client, backing Backing) *AccountDirectory {
	return &AccountDirectory{
		client:  client,
		backing: backing,
		prefix:  "account:",
		ttl:     5 * time.Minute,
	}
}

func (d *AccountDirectory) key(accountID string) string {
	return d.prefix + accountID
}

// GetAccountByID returns the cached account, loading and caching it on a
// miss. Redis errors degrade to a direct store read.
func (d *AccountDirectory) GetAccountByID(ctx context.Context, accountID string) (store.Account, error) {
	jsonData, err := d.client.Get(ctx, d.key(accountID)).Result()
	if err == nil {
		var data accountData
		if err := json.Unmarshal([]byte(jsonData), &data); err == nil {
			return store.Account{
				ID:          data.ID,
				DisplayName: data.DisplayName,
				Email:       data.Email,
			}, nil
		}
	} else if err != redis.Nil {
		return d.backing.GetAccountByID(ctx, accountID)
	}

	account, err := d.backing.GetAccountByID(ctx, accountID)
	if err != nil {
		return store.Account{}, err
	}

	data := accountData{
		ID:          account.ID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		CachedAt:    time.Now(),
	}
	if jsonBytes, err := json.Marshal(data); err == nil {
		// Best effort; a failed cache write only costs the next lookup.
		d.client.Set(ctx, d.key(accountID), jsonBytes, d.ttl)
	}
	return account, nil
}

// Invalidate drops one account from the cache
func (d *AccountDirectory) Invalidate(ctx context.Context, accountID string) error {
	if err := d.client.Del(ctx, d.key(accountID)).Err(); err != nil {
		return fmt.Errorf("invalidate account: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (d *AccountDirectory) Close() error {
	return d.client.Close()
}

// Ping checks if Redis is reachable
func (d *AccountDirectory) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
