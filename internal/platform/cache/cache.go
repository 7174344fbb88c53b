// Package cache provides the bounded, TTL-scoped key/value caches injected into
// ingest components. There is no package-level cache state: every consumer owns
// the instance it was given.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidConfig is returned by constructors given a non-positive capacity or TTL.
var ErrInvalidConfig = errors.New("cache: capacity and ttl must be positive")

// Cache is a string cache with a fixed TTL chosen at construction time.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	// Capacity bounds the number of live entries (memory backend only).
	Capacity int
	// TTL is applied to every Set.
	TTL time.Duration
	// Namespace prefixes keys (redis backend only).
	Namespace string
}
