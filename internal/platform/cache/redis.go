package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type redisCache struct {
	rdb       *goredis.Client
	ttl       time.Duration
	namespace string
}

// NewRedis connects to addr and verifies the connection with a ping. Capacity is
// enforced by the server's maxmemory policy; TTL is applied to every key.
func NewRedis(ctx context.Context, addr string, cfg Config) (Cache, error) {
	if cfg.TTL <= 0 {
		return nil, ErrInvalidConfig
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		ns = "dealwatch"
	}
	return &redisCache{rdb: rdb, ttl: cfg.TTL, namespace: ns}, nil
}

func (c *redisCache) key(k string) string { return c.namespace + ":" + k }

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, c.key(key), value, c.ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}

func (c *redisCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
