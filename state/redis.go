package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores state items as JSON envelopes under a key prefix.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStorage.
type RedisOption func(*RedisStorage)

// WithRedisPrefix sets the key prefix. Default "skillbridge:state:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStorage) { s.prefix = prefix }
}

// WithRedisTTL expires items after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStorage) { s.ttl = ttl }
}

// NewRedisStorage creates a RedisStorage on an existing client.
func NewRedisStorage(client redis.UniversalClient, opts ...RedisOption) *RedisStorage {
	s := &RedisStorage{client: client, prefix: "skillbridge:state:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Storage = (*RedisStorage)(nil)

type redisEnvelope struct {
	ETag      string    `json:"etag"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *RedisStorage) key(k string) string {
	return s.prefix + k
}

// Read implements Storage.
func (s *RedisStorage) Read(ctx context.Context, key string) (*Item, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode state %q: %w", key, err)
	}
	return &Item{Data: env.Data, ETag: env.ETag}, nil
}

// Write implements Storage. The e-tag check and the write run in one
// WATCH/MULTI transaction.
func (s *RedisStorage) Write(ctx context.Context, key string, item *Item) (string, error) {
	k := s.key(key)
	etag := newETag()
	payload, err := json.Marshal(redisEnvelope{ETag: etag, Data: item.Data, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode state %q: %w", key, err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cur redisEnvelope
			if err := json.Unmarshal(raw, &cur); err != nil {
				return fmt.Errorf("decode state %q: %w", key, err)
			}
			if !etagAllows(cur.ETag, item.ETag) {
				return fmt.Errorf("%w: key %q", ErrETagConflict, key)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl)
			return nil
		})
		return err
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return "", fmt.Errorf("%w: key %q changed during write", ErrETagConflict, key)
	}
	if err != nil {
		return "", err
	}
	return etag, nil
}

// Delete implements Storage.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
