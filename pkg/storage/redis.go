package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store with one Redis list per user, newest entry at
// the head. Lists are trimmed to maxEntries and expire ttl after the last
// append, so several predictor instances can share history.
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxEntries int
	mu         sync.RWMutex
}

// NewRedisStore creates a new Redis-backed store.
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string for no auth)
//   - db: Redis database number (typically 0)
//   - ttl: history expiration after the last append (0 uses default of 30 days)
//
// Returns an error if the connection to Redis fails or if parameters are invalid.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client:     client,
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
	}, nil
}

// conn returns the live client, or redis.ErrClosed after Close.
func (r *RedisStore) conn() (*redis.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return nil, redis.ErrClosed
	}
	return r.client, nil
}

func redisKey(userID string) string {
	return "ridewise:predictions:" + userID
}

// Append pushes the entry onto the user's list, trims it and refreshes its
// expiry in one transaction.
func (r *RedisStore) Append(ctx context.Context, e Entry) error {
	if err := checkEntry(e); err != nil {
		return err
	}

	client, err := r.conn()
	if err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	key := redisKey(e.UserID)
	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(r.maxEntries-1))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append entry in redis: %w", err)
	}

	return nil
}

// Recent returns up to limit entries for userID, newest first. A user with no
// history yields an empty slice.
func (r *RedisStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	client, err := r.conn()
	if err != nil {
		return nil, err
	}

	raw, err := client.LRange(ctx, redisKey(userID), 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the Redis client connection.
// It is safe to call multiple times (idempotent).
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}

	return err
}

// Ping checks the Redis connection health.
func (r *RedisStore) Ping(ctx context.Context) error {
	client, err := r.conn()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}
