package cache

import (
	"context"

	"github.com/inkwell-dev/inkwell/internal/metrics"
)

// Instrumented wraps a Cache and counts lookups in the cache_requests_total metric
type Instrumented struct {
	Cache
	name string
}

// WithMetrics wraps c so that Get and Exists report hit/miss/error under name
func WithMetrics(name string, c Cache) *Instrumented {
	return &Instrumented{Cache: c, name: name}
}

// Get retrieves a value and records the outcome
func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := i.Cache.Get(ctx, key)
	i.record(err, err == nil)
	return v, err
}

// Exists checks a key and records the outcome
func (i *Instrumented) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := i.Cache.Exists(ctx, key)
	i.record(err, ok)
	return ok, err
}

func (i *Instrumented) record(err error, hit bool) {
	result := "miss"
	switch {
	case err != nil && !IsCacheMiss(err):
		result = "error"
	case hit:
		result = "hit"
	}
	metrics.CacheRequests.WithLabelValues(i.name, result).Inc()
}
