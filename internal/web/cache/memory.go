package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache implements an in-memory cache with TTL support
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]cacheItem
	config Config
	cancel context.CancelFunc
	now    func() time.Time
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(DefaultConfig())
}

// NewMemoryCacheWithConfig creates an in-memory cache and starts its janitor
func NewMemoryCacheWithConfig(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		items:  make(map[string]cacheItem),
		config: config,
		cancel: cancel,
		now:    time.Now,
	}

	go mc.janitor(ctx, time.Minute)

	return mc
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	item, ok := m.items[m.config.Prefix+key]
	m.mu.RUnlock()

	if !ok || item.expired(m.now()) {
		return nil, ErrCacheMiss{Key: key}
	}
	return item.value, nil
}

// Set stores a value in the cache. A zero TTL uses the default; a negative
// TTL stores the value without expiry.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	item := cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[m.config.Prefix+key] = item
	m.mu.Unlock()
	return nil
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.items, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes all values from the cache
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.items = make(map[string]cacheItem)
	m.mu.Unlock()
	return nil
}

// Exists checks if a live key exists in the cache
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	item, ok := m.items[m.config.Prefix+key]
	m.mu.RUnlock()

	return ok && !item.expired(m.now()), nil
}

// Len returns the number of stored items, including expired ones not yet swept
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the background janitor
func (m *MemoryCache) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *MemoryCache) sweep() {
	now := m.now()
	m.mu.Lock()
	for k, item := range m.items {
		if item.expired(now) {
			delete(m.items, k)
		}
	}
	m.mu.Unlock()
}

func (m *MemoryCache) janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}
