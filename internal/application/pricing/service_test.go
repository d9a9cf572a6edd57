package pricing

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/test/testutils"
)

type PricingServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	cache     *testutils.MockPriceCache
	catalog   *testutils.MockIngredientCatalog
	refresher *testutils.MockPriceRefresher
	service   *Service
	now       time.Time
}

func (s *PricingServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cache = new(testutils.MockPriceCache)
	s.catalog = new(testutils.MockIngredientCatalog)
	s.refresher = new(testutils.MockPriceRefresher)
	s.now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	svc, err := NewService(s.cache, s.catalog, s.refresher, testutils.NopMetrics{}, zap.NewNop(), DefaultConfig())
	require.NoError(s.T(), err)
	svc.now = func() time.Time { return s.now }
	s.service = svc
}

func (s *PricingServiceTestSuite) TearDownTest() {
	_ = s.service.Stop(context.Background())
}

func (s *PricingServiceTestSuite) TestQuotes_FreshCacheHit() {
	// Arrange
	id := uuid.New()
	info := pricing.Info{IngredientID: id, Amount: 0.02, Currency: "EUR", UpdatedAt: s.now.Add(-time.Hour)}
	s.cache.On("GetMany", mock.Anything, []uuid.UUID{id}).Return(map[uuid.UUID]pricing.Info{id: info}, nil)

	// Act
	quotes, err := s.service.Quotes(s.ctx, []uuid.UUID{id})

	// Assert
	require.NoError(s.T(), err)
	q := quotes[id]
	assert.Equal(s.T(), pricing.Fresh, q.Freshness)
	assert.False(s.T(), q.Estimate)
	assert.Equal(s.T(), "EUR", q.Currency)
	assert.Empty(s.T(), s.service.queue)
	s.catalog.AssertNotCalled(s.T(), "GetIngredients", mock.Anything, mock.Anything)
}

func (s *PricingServiceTestSuite) TestQuotes_CatalogFallbackWritesBack() {
	ing := testutils.NewIngredientBuilder().WithPrice(0.5, "usd", s.now.AddDate(0, 0, -30)).Build()
	s.cache.On("GetMany", mock.Anything, []uuid.UUID{ing.ID()}).Return(map[uuid.UUID]pricing.Info{}, nil)
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{ing.ID()}).Return([]*ingredient.Ingredient{ing}, nil)
	s.cache.On("Put", mock.Anything, mock.MatchedBy(func(info pricing.Info) bool {
		return info.IngredientID == ing.ID() && info.Currency == "USD"
	})).Return(nil).Once()

	quotes, err := s.service.Quotes(s.ctx, []uuid.UUID{ing.ID()})

	require.NoError(s.T(), err)
	q := quotes[ing.ID()]
	assert.Equal(s.T(), pricing.Stale, q.Freshness)
	assert.True(s.T(), q.Estimate)
	assert.InDelta(s.T(), 0.5, q.UnitPrice, 1e-9)
	assert.Len(s.T(), s.service.queue, 1)
	s.cache.AssertExpectations(s.T())
}

func (s *PricingServiceTestSuite) TestQuotes_AbsentUsesDefaultAndDedupesRefresh() {
	id := uuid.New()
	s.cache.On("GetMany", mock.Anything, mock.Anything).Return(map[uuid.UUID]pricing.Info{}, nil)
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{id}).Return([]*ingredient.Ingredient{}, nil)

	for i := 0; i < 3; i++ {
		quotes, err := s.service.Quotes(s.ctx, []uuid.UUID{id, id})
		require.NoError(s.T(), err)
		q := quotes[id]
		assert.Equal(s.T(), pricing.Absent, q.Freshness)
		assert.InDelta(s.T(), 0.01, q.UnitPrice, 1e-12)
		assert.Equal(s.T(), "USD", q.Currency)
		assert.Nil(s.T(), q.UpdatedAt)
	}

	assert.Len(s.T(), s.service.queue, 1)
}

func (s *PricingServiceTestSuite) TestQuotes_CacheFailureDegradesToCatalog() {
	ing := testutils.NewIngredientBuilder().WithPrice(1.2, "USD", s.now).Build()
	s.cache.On("GetMany", mock.Anything, mock.Anything).Return(nil, stderrors.New("redis down"))
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{ing.ID()}).Return([]*ingredient.Ingredient{ing}, nil)
	s.cache.On("Put", mock.Anything, mock.Anything).Return(stderrors.New("redis down"))

	quotes, err := s.service.Quotes(s.ctx, []uuid.UUID{ing.ID()})

	require.NoError(s.T(), err)
	assert.Equal(s.T(), pricing.Fresh, quotes[ing.ID()].Freshness)
}

func (s *PricingServiceTestSuite) TestQuotes_CatalogFailure() {
	s.cache.On("GetMany", mock.Anything, mock.Anything).Return(map[uuid.UUID]pricing.Info{}, nil)
	s.catalog.On("GetIngredients", mock.Anything, mock.Anything).Return(nil, stderrors.New("connection refused"))

	_, err := s.service.Quotes(s.ctx, []uuid.UUID{uuid.New()})

	assert.True(s.T(), errors.Is(err, errors.CodeDatabaseError))
}

func (s *PricingServiceTestSuite) TestGetPriceInfo_Expired() {
	policy := pricing.DefaultPolicy()
	policy.ExpireAfter = 30 * 24 * time.Hour
	require.NoError(s.T(), s.service.UpdatePolicy(policy))

	id := uuid.New()
	info := pricing.Info{IngredientID: id, Amount: 3, Currency: "USD", UpdatedAt: s.now.AddDate(0, -2, 0)}
	s.cache.On("GetMany", mock.Anything, []uuid.UUID{id}).Return(map[uuid.UUID]pricing.Info{id: info}, nil)

	dto, err := s.service.GetPriceInfo(s.ctx, id)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), pricing.Expired, dto.Freshness)
	require.NotNil(s.T(), dto.Info)
	assert.InDelta(s.T(), 3.0, dto.Info.Amount, 1e-9)
}

func (s *PricingServiceTestSuite) TestUpdatePolicy_Invalid() {
	bad := pricing.DefaultPolicy()
	bad.FreshFor = 0

	err := s.service.UpdatePolicy(bad)

	assert.True(s.T(), errors.Is(err, errors.CodeValidationFailed))
	assert.Equal(s.T(), pricing.DefaultPolicy(), s.service.Policy())
}

func (s *PricingServiceTestSuite) TestRefreshWorker_StoresNewPrice() {
	id := uuid.New()
	fetched := &ingredient.Price{Amount: 0.07, Currency: "USD", UpdatedAt: s.now}
	s.refresher.On("TriggerPriceRefresh", mock.Anything, id).Return(fetched, nil).Once()
	s.catalog.On("UpdatePrice", mock.Anything, id, *fetched).Return(nil).Once()
	s.cache.On("Put", mock.Anything, pricing.Info{IngredientID: id, Amount: 0.07, Currency: "USD", UpdatedAt: s.now}).Return(nil).Once()

	require.NoError(s.T(), s.service.Start(s.ctx))
	s.service.enqueue(id)

	assert.Eventually(s.T(), func() bool {
		s.service.pendingMu.Lock()
		defer s.service.pendingMu.Unlock()
		return len(s.service.pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	s.refresher.AssertExpectations(s.T())
	s.catalog.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func (s *PricingServiceTestSuite) TestRefreshWorker_CacheWriteFailureInvalidates() {
	id := uuid.New()
	fetched := &ingredient.Price{Amount: 0.09, Currency: "USD", UpdatedAt: s.now}
	s.refresher.On("TriggerPriceRefresh", mock.Anything, id).Return(fetched, nil).Once()
	s.catalog.On("UpdatePrice", mock.Anything, id, *fetched).Return(nil).Once()
	s.cache.On("Put", mock.Anything, mock.Anything).Return(stderrors.New("redis down")).Once()
	s.cache.On("Invalidate", mock.Anything, id).Return(nil).Once()

	require.NoError(s.T(), s.service.Start(s.ctx))
	s.service.enqueue(id)

	assert.Eventually(s.T(), func() bool {
		s.service.pendingMu.Lock()
		defer s.service.pendingMu.Unlock()
		return len(s.service.pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	s.catalog.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func (s *PricingServiceTestSuite) TestRefreshWorker_FeedErrorLeavesCatalogUntouched() {
	id := uuid.New()
	s.refresher.On("TriggerPriceRefresh", mock.Anything, id).Return(nil, stderrors.New("feed unavailable")).Once()

	require.NoError(s.T(), s.service.Start(s.ctx))
	s.service.enqueue(id)

	assert.Eventually(s.T(), func() bool {
		s.service.pendingMu.Lock()
		defer s.service.pendingMu.Unlock()
		return len(s.service.pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	s.catalog.AssertNotCalled(s.T(), "UpdatePrice", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PricingServiceTestSuite) TestEnqueue_DropsWhenQueueFull() {
	cfg := DefaultConfig()
	cfg.RefreshQueueSize = 1
	svc, err := NewService(s.cache, s.catalog, s.refresher, testutils.NopMetrics{}, zap.NewNop(), cfg)
	require.NoError(s.T(), err)

	first, second := uuid.New(), uuid.New()
	svc.enqueue(first)
	svc.enqueue(second)

	assert.Len(s.T(), svc.queue, 1)
	assert.Contains(s.T(), svc.pending, first)
	assert.NotContains(s.T(), svc.pending, second)
}

func (s *PricingServiceTestSuite) TestNilRefresherNeverQueues() {
	svc, err := NewService(s.cache, s.catalog, nil, testutils.NopMetrics{}, zap.NewNop(), DefaultConfig())
	require.NoError(s.T(), err)

	svc.enqueue(uuid.New())

	assert.Empty(s.T(), svc.queue)
	require.NoError(s.T(), svc.Start(s.ctx))
	require.NoError(s.T(), svc.Stop(s.ctx))
}

func TestPricingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PricingServiceTestSuite))
}
