package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itemgrid/fieldflow/types"
)

const (
	definitionPrefix = "fieldflow:definition:"
	draftPrefix      = "fieldflow:draft:"
)

// RedisStore is a Redis-backed implementation of the Store interface.
type RedisStore struct {
	client *redis.Client
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	IdleTimeout  time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		IdleTimeout:  opts.IdleTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client, useful for tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) saveJSON(ctx context.Context, key string, value interface{}) error {
	return withContextError(ctx, func() error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %v", key, err)
		}
		if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
			return fmt.Errorf("failed to set %s in Redis: %v", key, err)
		}
		return nil
	})
}

func getJSON[T any](ctx context.Context, client *redis.Client, key string, errNotFound error) (T, error) {
	return withContext(ctx, func() (T, error) {
		var zero T
		data, err := client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return zero, fmt.Errorf("%w: key=%s", errNotFound, key)
		} else if err != nil {
			return zero, fmt.Errorf("failed to get %s from Redis: %v", key, err)
		}
		var out T
		if err := json.Unmarshal(data, &out); err != nil {
			return zero, fmt.Errorf("failed to unmarshal %s: %v", key, err)
		}
		return out, nil
	})
}

// SaveDefinition stores a named action list.
func (s *RedisStore) SaveDefinition(ctx context.Context, name string, actions []types.ActionDescriptor) error {
	return s.saveJSON(ctx, definitionPrefix+name, actions)
}

// GetDefinition retrieves a named action list.
func (s *RedisStore) GetDefinition(ctx context.Context, name string) ([]types.ActionDescriptor, error) {
	return getJSON[[]types.ActionDescriptor](ctx, s.client, definitionPrefix+name, ErrDefinitionNotFound)
}

// SaveDraft stores a window's tracked-value snapshot.
func (s *RedisStore) SaveDraft(ctx context.Context, windowID string, values []types.TrackedValue) error {
	return s.saveJSON(ctx, draftPrefix+windowID, values)
}

// GetDraft retrieves a window's tracked-value snapshot.
func (s *RedisStore) GetDraft(ctx context.Context, windowID string) ([]types.TrackedValue, error) {
	return getJSON[[]types.TrackedValue](ctx, s.client, draftPrefix+windowID, ErrDraftNotFound)
}

// DeleteDraft removes a window's snapshot.
func (s *RedisStore) DeleteDraft(ctx context.Context, windowID string) error {
	return withContextError(ctx, func() error {
		return s.client.Del(ctx, draftPrefix+windowID).Err()
	})
}
