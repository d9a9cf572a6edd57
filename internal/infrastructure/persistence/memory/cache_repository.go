// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nutriplan/engine/internal/ports/outbound"
)

// CacheItem represents a cached item. A zero ExpiresAt never expires.
type CacheItem struct {
	Value     []byte
	ExpiresAt time.Time
}

func (i CacheItem) expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Options bounds the cache
type Options struct {
	// MaxEntries caps the number of keys; 0 means unbounded
	MaxEntries      int
	CleanupInterval time.Duration
}

// CacheRepository implements an in-memory byte cache with TTLs
type CacheRepository struct {
	data       map[string]CacheItem
	mutex      sync.RWMutex
	maxEntries int
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCacheRepository creates a new in-memory cache repository and starts
// its cleanup loop. Call Close to stop it.
func NewCacheRepository(opts Options) *CacheRepository {
	repo := &CacheRepository{
		data:       make(map[string]CacheItem),
		maxEntries: opts.MaxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go repo.cleanup(interval)

	return repo
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	if !exists || item.expired(r.now()) {
		return nil, outbound.ErrCacheMiss
	}
	return item.Value, nil
}

// Set stores a value in cache with TTL; a zero TTL never expires
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.store(key, value, ttl)
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.data[key]
	return exists && !item.expired(r.now()), nil
}

// MGet retrieves multiple values from cache; missing keys are omitted
func (r *CacheRepository) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := r.now()

	for _, key := range keys {
		if item, exists := r.data[key]; exists && !item.expired(now) {
			result[key] = item.Value
		}
	}
	return result, nil
}

// MSet stores multiple values in cache
func (r *CacheRepository) MSet(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, value := range items {
		r.store(key, value, ttl)
	}
	return nil
}

// Ping always succeeds
func (r *CacheRepository) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored keys, expired ones included
func (r *CacheRepository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data)
}

// Close stops the cleanup loop
func (r *CacheRepository) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	return nil
}

// store must be called with the write lock held
func (r *CacheRepository) store(key string, value []byte, ttl time.Duration) {
	item := CacheItem{Value: value}
	if ttl > 0 {
		item.ExpiresAt = r.now().Add(ttl)
	}

	if _, exists := r.data[key]; !exists && r.maxEntries > 0 && len(r.data) >= r.maxEntries {
		r.evict()
	}
	r.data[key] = item
}

// evict drops expired keys, or the key closest to expiry when none are
func (r *CacheRepository) evict() {
	now := r.now()
	removed := r.purge(now)
	if removed > 0 {
		return
	}

	var victim string
	var soonest time.Time
	for key, item := range r.data {
		switch {
		case victim == "":
			victim, soonest = key, item.ExpiresAt
		case !item.ExpiresAt.IsZero() && (soonest.IsZero() || item.ExpiresAt.Before(soonest)):
			victim, soonest = key, item.ExpiresAt
		}
	}
	delete(r.data, victim)
}

func (r *CacheRepository) purge(now time.Time) int {
	removed := 0
	for key, item := range r.data {
		if item.expired(now) {
			delete(r.data, key)
			removed++
		}
	}
	return removed
}

// cleanup removes expired items
func (r *CacheRepository) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mutex.Lock()
			r.purge(r.now())
			r.mutex.Unlock()
		case <-r.stop:
			return
		}
	}
}
