package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/willemschots/newsletter/internal/errorz"
)

// RedisKV stores entries in redis, all keys are prefixed.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV creates a KV on top of rdb.
func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{
		rdb:    rdb,
		prefix: prefix,
	}
}

// OpenRedis connects to the redis server at url and checks that it responds.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	err = rdb.Ping(ctx).Err()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to ping redis: %w", err), rdb.Close())
	}

	return rdb, nil
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errorz.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}
