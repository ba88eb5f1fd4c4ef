package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/freight-agent/domain/kv"
)

// KV is a Redis-backed implementation of kv.Backend.
// Expiration is delegated to Redis key TTLs.
type KV struct {
	client    *redis.Client
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewKV connects to Redis and verifies the connection with a ping.
func NewKV(cfg Config, opts ...ConfigOption) (*KV, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	return &KV{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewKVFromClient wraps an existing Redis client.
func NewKVFromClient(client *redis.Client, keyPrefix string) *KV {
	return &KV{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *KV) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Get retrieves a value by key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	result, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, wrapError(err)
	}

	s.hits.Add(1)
	return result, true, nil
}

// Set stores a value. A zero TTL stores the key without expiration.
func (s *KV) Set(ctx context.Context, key string, value []byte, opts kv.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	var expiration time.Duration
	if opts.TTL > 0 {
		expiration = opts.TTL
	}

	if err := s.client.Set(ctx, s.prefixKey(key), value, expiration).Err(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Delete removes a key.
func (s *KV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Exists checks if a key exists.
func (s *KV) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	n, err := s.client.Exists(ctx, s.prefixKey(key)).Result()
	if err != nil {
		return false, wrapError(err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of a key.
// Redis reports -2 for missing keys and -1 for keys without expiration.
func (s *KV) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	d, err := s.client.TTL(ctx, s.prefixKey(key)).Result()
	if err != nil {
		return 0, false, wrapError(err)
	}
	if d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// Stats returns hit and miss counts. Size is not tracked for Redis.
func (s *KV) Stats() kv.Stats {
	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Close closes the Redis connection.
func (s *KV) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *KV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// wrapError wraps Redis errors with domain errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(kv.ErrOperationTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(kv.ErrOperationTimeout, err)
	}

	return errors.Join(kv.ErrConnectionFailed, err)
}

// Ensure KV implements kv.Backend and kv.StatsProvider
var (
	_ kv.Backend       = (*KV)(nil)
	_ kv.StatsProvider = (*KV)(nil)
)
