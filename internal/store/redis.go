package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores each blob as a string key, optionally prefixed.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to addr (host:port or a redis:// URL) and pings it.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisKV, error) {
	client := redis.NewClient(redisOptions(addr, password, db))
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisKV{client: client, prefix: prefix}, nil
}

// redisOptions accepts a host:port or a redis:// URL. Password and db fill
// in what the URL leaves unset.
func redisOptions(addr, password string, db int) *redis.Options {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return &redis.Options{Addr: addr, Password: password, DB: db}
	}
	if opt.Password == "" {
		opt.Password = password
	}
	if opt.DB == 0 {
		opt.DB = db
	}
	return opt
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
