// Package cache provides the key/value caches used for computed API payloads
// and the token denylist, backed by Redis or process memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache
	Exists(ctx context.Context, key string) (bool, error)
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL is used when Set is called with a zero TTL
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "inkwell:",
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// GetJSON decodes the cached value at key into dst
func GetJSON(ctx context.Context, c Cache, key string, dst any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// SetJSON encodes v and stores it at key
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// Remember returns the cached value at key, or computes it with fn and caches
// the result. Cache failures other than a miss fall through to fn and are
// logged at debug with the context logger.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cached T
	err := GetJSON(ctx, c, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !IsCacheMiss(err) {
		logging.FromContext(ctx).Debug("cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	if err := SetJSON(ctx, c, key, v, ttl); err != nil {
		logging.FromContext(ctx).Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
