// Package dedup tracks the content hashes of generated records so that a
// corpus never holds the same query twice.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Set is a seen-set of record hashes.
type Set interface {
	// Add records hash and reports whether it was new.
	Add(ctx context.Context, hash string) (bool, error)
	// Len returns the number of hashes seen.
	Len(ctx context.Context) (int64, error)
	// Reset forgets every hash.
	Reset(ctx context.Context) error
}

// Memory is an in-process Set.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemory returns an empty in-memory set.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) Add(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[hash]; ok {
		return false, nil
	}
	m.seen[hash] = struct{}{}
	return true, nil
}

func (m *Memory) Len(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen)), nil
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = make(map[string]struct{})
	return nil
}

// DefaultRedisKey is the Redis set used when none is configured.
const DefaultRedisKey = "gosquit:hashes"

// Redis is a Set backed by a Redis set, so several generator processes can
// share one corpus.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis returns a Set stored under key. An empty key uses
// DefaultRedisKey.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Add(ctx context.Context, hash string) (bool, error) {
	n, err := r.client.SAdd(ctx, r.key, hash).Result()
	if err != nil {
		return false, fmt.Errorf("dedup.Redis.Add: %w", err)
	}
	return n == 1, nil
}

func (r *Redis) Len(ctx context.Context) (int64, error) {
	n, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("dedup.Redis.Len: %w", err)
	}
	return n, nil
}

func (r *Redis) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("dedup.Redis.Reset: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// RedisOptions configures DialRedis.
type RedisOptions struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Key      string `json:"key" yaml:"key"`
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, opts RedisOptions) (*Redis, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	r := NewRedis(client, opts.Key)
	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return r, client, nil
}
