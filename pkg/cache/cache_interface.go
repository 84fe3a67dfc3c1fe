package cache

import (
	"context"
	"time"
)

// Cache is the contract for the read-through cache layer, so the
// implementation (Redis today) can be swapped without touching services.
type Cache interface {
	// Get reads a key and unmarshals into dest.
	// found=false means cache miss, dest untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern
	DeletePattern(ctx context.Context, pattern string) error

	// Ping checks the connection
	Ping(ctx context.Context) error
}
