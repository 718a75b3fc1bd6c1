// Package cache holds the TTL-bounded result cache and the single-flight
// coordinator that guarantees at most one in-flight computation per
// fingerprint.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss means the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// ErrUnavailable means the backing store could not be reached. The
// coordinator treats it as a signal to degrade to passthrough, never as a
// request failure.
var ErrUnavailable = errors.New("cache backend unavailable")

// Store is the narrow interface over the external key-value cache.
// Keys are append/overwrite-only with a TTL; no cross-key transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}
