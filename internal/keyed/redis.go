package keyed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "hushpay/internal/errors"
)

// RedisConfig describes the Redis connection shared by all namespaces.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient dials and pings Redis.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps records as JSON strings with native Redis expiry. Take
// uses GETDEL so read-then-delete is a single server-side step.
type RedisStore[T any] struct {
	client *redis.Client
	prefix string
}

// NewRedisStore namespaces keys as prefix+namespace+":"+key.
func NewRedisStore[T any](client *redis.Client, prefix, namespace string) *RedisStore[T] {
	return &RedisStore[T]{client: client, prefix: prefix + namespace + ":"}
}

func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	return s.result(data, err, "get")
}

func (s *RedisStore[T]) Put(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return xerrors.Wrap(CodeKeyedStore, err, "encode record")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return xerrors.Wrap(CodeKeyedStore, err, "redis set")
	}
	return nil
}

func (s *RedisStore[T]) Take(ctx context.Context, key string) (T, bool, error) {
	data, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	return s.result(data, err, "getdel")
}

func (s *RedisStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return xerrors.Wrap(CodeKeyedStore, err, "redis del")
	}
	return nil
}

func (s *RedisStore[T]) result(data []byte, err error, op string) (T, bool, error) {
	var zero T
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, xerrors.Wrap(CodeKeyedStore, err, "redis "+op)
	}
	return decode[T](data, true)
}

var _ Store[struct{}] = (*RedisStore[struct{}])(nil)
