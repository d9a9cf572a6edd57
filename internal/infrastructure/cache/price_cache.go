package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// PriceCache stores pricing.Info as JSON in a CacheRepository
type PriceCache struct {
	cache   outbound.CacheRepository
	keys    *KeyBuilder
	ttl     time.Duration
	metrics outbound.EngineMetrics
	logger  *zap.Logger
}

// NewPriceCache creates a price cache. ttl bounds how long an entry is kept
// in the backing store; freshness is judged by the pricing policy.
func NewPriceCache(cache outbound.CacheRepository, keyPrefix string, ttl time.Duration, metrics outbound.EngineMetrics, logger *zap.Logger) *PriceCache {
	return &PriceCache{
		cache:   cache,
		keys:    NewKeyBuilder(keyPrefix),
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.Named("price-cache"),
	}
}

var _ outbound.PriceCache = (*PriceCache)(nil)

// GetMany loads prices in one batch; undecodable entries count as misses
func (c *PriceCache) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Info, error) {
	out := make(map[uuid.UUID]pricing.Info, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	byKey := make(map[string]uuid.UUID, len(ids))
	for i, id := range ids {
		keys[i] = c.keys.BuildPriceKey(id.String())
		byKey[keys[i]] = id
	}

	raw, err := c.cache.MGet(ctx, keys)
	if err != nil {
		c.metrics.CacheOperation("mget", "error")
		return nil, fmt.Errorf("price cache lookup: %w", err)
	}

	for key, data := range raw {
		var info pricing.Info
		if err := json.Unmarshal(data, &info); err != nil {
			c.logger.Warn("Dropping undecodable price entry", zap.String("key", key), zap.Error(err))
			c.metrics.CacheOperation("get", "corrupt")
			continue
		}
		info.IngredientID = byKey[key]
		out[info.IngredientID] = info
	}

	for range out {
		c.metrics.CacheOperation("get", "hit")
	}
	for i := len(out); i < len(ids); i++ {
		c.metrics.CacheOperation("get", "miss")
	}
	return out, nil
}

// Put stores one price
func (c *PriceCache) Put(ctx context.Context, info pricing.Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode price: %w", err)
	}

	if err := c.cache.Set(ctx, c.keys.BuildPriceKey(info.IngredientID.String()), data, c.ttl); err != nil {
		c.metrics.CacheOperation("set", "error")
		return fmt.Errorf("price cache store: %w", err)
	}
	c.metrics.CacheOperation("set", "success")
	return nil
}

// Invalidate removes one price
func (c *PriceCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	err := c.cache.Delete(ctx, c.keys.BuildPriceKey(id.String()))
	if err != nil && !errors.Is(err, outbound.ErrCacheMiss) {
		c.metrics.CacheOperation("delete", "error")
		return err
	}
	c.metrics.CacheOperation("delete", "success")
	return nil
}
