package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/infrastructure/cache"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/memory"
	"github.com/nutriplan/engine/test/testutils"
)

type PriceCacheTestSuite struct {
	suite.Suite
	ctx     context.Context
	backing *memory.CacheRepository
	prices  *cache.PriceCache
}

func (s *PriceCacheTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.backing = memory.NewCacheRepository(memory.Options{CleanupInterval: time.Hour})
	s.prices = cache.NewPriceCache(s.backing, "test", time.Hour, testutils.NopMetrics{}, zap.NewNop())
}

func (s *PriceCacheTestSuite) TearDownTest() {
	_ = s.backing.Close()
}

func (s *PriceCacheTestSuite) TestPutThenGetMany() {
	// Arrange
	id := uuid.New()
	updated := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(s.T(), s.prices.Put(s.ctx, pricing.Info{IngredientID: id, Amount: 0.25, Currency: "USD", UpdatedAt: updated}))

	// Act
	got, err := s.prices.GetMany(s.ctx, []uuid.UUID{id, uuid.New()})

	// Assert
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.InDelta(s.T(), 0.25, got[id].Amount, 1e-12)
	assert.True(s.T(), updated.Equal(got[id].UpdatedAt))
}

func (s *PriceCacheTestSuite) TestKeysArePrefixed() {
	id := uuid.New()
	require.NoError(s.T(), s.prices.Put(s.ctx, pricing.Info{IngredientID: id, Amount: 1, Currency: "USD"}))

	exists, err := s.backing.Exists(s.ctx, "test:price:"+id.String())

	require.NoError(s.T(), err)
	assert.True(s.T(), exists)
}

func (s *PriceCacheTestSuite) TestCorruptEntryIsAMiss() {
	id := uuid.New()
	require.NoError(s.T(), s.backing.Set(s.ctx, "test:price:"+id.String(), []byte("{not json"), 0))

	got, err := s.prices.GetMany(s.ctx, []uuid.UUID{id})

	require.NoError(s.T(), err)
	assert.Empty(s.T(), got)
}

func (s *PriceCacheTestSuite) TestInvalidate() {
	id := uuid.New()
	require.NoError(s.T(), s.prices.Put(s.ctx, pricing.Info{IngredientID: id, Amount: 1, Currency: "USD"}))

	require.NoError(s.T(), s.prices.Invalidate(s.ctx, id))
	got, err := s.prices.GetMany(s.ctx, []uuid.UUID{id})

	require.NoError(s.T(), err)
	assert.Empty(s.T(), got)
}

func TestPriceCacheTestSuite(t *testing.T) {
	suite.Run(t, new(PriceCacheTestSuite))
}
