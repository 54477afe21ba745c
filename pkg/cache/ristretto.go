package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// TTLCache is a bounded cache backed by Ristretto with lazy, read-time expiry.
//
// Entries carry their own write timestamp instead of a Ristretto TTL: an expired entry
// stays in memory until the next Get for its key evicts it. There is no background sweep.
type TTLCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// TTLConfig holds configuration for the TTL cache.
type TTLConfig struct {
	TTL         time.Duration // Fixed for the lifetime of the cache
	NumCounters int64         // Number of keys to track frequency (10x max items)
	MaxCost     int64         // Maximum number of items
	BufferItems int64         // Number of keys per Get buffer
	Logger      *zap.Logger
	Now         func() time.Time // Optional clock, defaults to time.Now
}

type entry struct {
	storedAt time.Time
	value    interface{}
}

// NewTTLCache creates a new Ristretto-backed TTL cache.
func NewTTLCache(cfg *TTLConfig) (*TTLCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		// MaxCost counts entries, so Ristretto's per-item overhead must not be added
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TTLCache{
		cache:  c,
		ttl:    cfg.TTL,
		now:    now,
		logger: logger,
	}, nil
}

// Get retrieves a value if it was written no more than TTL ago.
// An expired entry is evicted and reported as a miss.
func (r *TTLCache) Get(key string) (interface{}, bool) {
	raw, found := r.cache.Get(key)
	if !found {
		CacheMissesTotal.Inc()
		r.logger.Debug("cache-miss", zap.String("key", key))
		return nil, false
	}

	e, ok := raw.(*entry)
	if !ok {
		CacheMissesTotal.Inc()
		return nil, false
	}

	age := r.now().Sub(e.storedAt)
	if age > r.ttl {
		r.cache.Del(key)
		CacheExpiredTotal.Inc()
		CacheMissesTotal.Inc()
		r.logger.Debug("cache-expired",
			zap.String("key", key),
			zap.Duration("age", age))
		return nil, false
	}

	CacheHitsTotal.Inc()
	r.logger.Debug("cache-hit", zap.String("key", key))
	return e.value, true
}

// Set stores a value stamped with the current time. The last writer wins.
// The call waits for Ristretto to apply the write so a following Get observes it.
func (r *TTLCache) Set(key string, value interface{}) bool {
	// Cost = 1 (we're counting items, not bytes)
	success := r.cache.Set(key, &entry{storedAt: r.now(), value: value}, 1)
	r.cache.Wait()
	if success {
		CacheSetsTotal.Inc()
		r.logger.Debug("cache-set", zap.String("key", key))
	}
	return success
}

// Close closes the cache and releases resources.
func (r *TTLCache) Close() {
	r.cache.Close()
	r.logger.Info("cache-closed")
}
