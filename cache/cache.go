// Package cache defines the distributed key-value cache contract used for
// claims and block-status lookups, plus Redis and in-memory adapters.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps transport-level failures from the backing cache.
var ErrUnavailable = errors.New("cache unavailable")

// Cache is the narrow cache contract. A miss is (nil, false, nil), never an
// error; callers treat errors as an availability problem, not a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
