// Package pricing serves ingredient prices from the cache and catalog and
// keeps them current with a background refresh worker.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/errors"
)

// Config holds the staleness policy and the refresh worker limits
type Config struct {
	Policy            pricing.Policy `mapstructure:",squash"`
	RefreshRatePerSec float64        `mapstructure:"refresh_rate_per_sec"`
	RefreshBurst      int            `mapstructure:"refresh_burst"`
	RefreshQueueSize  int            `mapstructure:"refresh_queue_size"`
	RefreshTimeout    time.Duration  `mapstructure:"refresh_timeout"`
}

// DefaultConfig returns the default policy with a gentle refresh rate
func DefaultConfig() Config {
	return Config{
		Policy:            pricing.DefaultPolicy(),
		RefreshRatePerSec: 5,
		RefreshBurst:      5,
		RefreshQueueSize:  256,
		RefreshTimeout:    10 * time.Second,
	}
}

const (
	refreshSuccess  = "success"
	refreshError    = "error"
	refreshNotFound = "not_found"
	refreshDropped  = "dropped"
)

// Service implements inbound.PricingService. Lookups never wait on the
// external feed; stale and absent prices are queued for refresh instead.
type Service struct {
	cache     outbound.PriceCache
	catalog   outbound.IngredientCatalog
	refresher outbound.PriceRefresher
	metrics   outbound.EngineMetrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu     sync.RWMutex
	policy pricing.Policy

	limiter *rate.Limiter
	timeout time.Duration
	queue   chan uuid.UUID

	pendingMu sync.Mutex
	pending   map[uuid.UUID]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a pricing service. A nil refresher disables refreshes.
func NewService(
	cache outbound.PriceCache,
	catalog outbound.IngredientCatalog,
	refresher outbound.PriceRefresher,
	metrics outbound.EngineMetrics,
	logger *zap.Logger,
	cfg Config,
) (*Service, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing policy: %w", err)
	}
	if cfg.RefreshQueueSize <= 0 {
		cfg.RefreshQueueSize = DefaultConfig().RefreshQueueSize
	}
	if cfg.RefreshBurst <= 0 {
		cfg.RefreshBurst = 1
	}
	limit := rate.Inf
	if cfg.RefreshRatePerSec > 0 {
		limit = rate.Limit(cfg.RefreshRatePerSec)
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultConfig().RefreshTimeout
	}

	return &Service{
		cache:     cache,
		catalog:   catalog,
		refresher: refresher,
		metrics:   metrics,
		logger:    logger.Named("pricing-service"),
		tracer:    otel.Tracer("nutriplan/application/pricing"),
		now:       time.Now,
		policy:    cfg.Policy,
		limiter:   rate.NewLimiter(limit, cfg.RefreshBurst),
		timeout:   cfg.RefreshTimeout,
		queue:     make(chan uuid.UUID, cfg.RefreshQueueSize),
		pending:   make(map[uuid.UUID]struct{}),
	}, nil
}

var _ inbound.PricingService = (*Service)(nil)

// Policy returns the active policy
func (s *Service) Policy() pricing.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// UpdatePolicy swaps the active policy. Lookups already in flight keep the
// policy they started with.
func (s *Service) UpdatePolicy(p pricing.Policy) error {
	if err := p.Validate(); err != nil {
		return errors.NewValidationError(err.Error())
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()

	s.logger.Info("Pricing policy updated",
		zap.Duration("fresh_for", p.FreshFor),
		zap.Duration("expire_after", p.ExpireAfter),
		zap.Float64("default_unit_price", p.DefaultUnitPrice),
		zap.String("default_currency", p.DefaultCurrency),
		zap.Bool("use_stale_prices", p.UseStalePrices),
	)
	return nil
}

// GetPriceInfo returns the last known price and its freshness class
func (s *Service) GetPriceInfo(ctx context.Context, ingredientID uuid.UUID) (*inbound.PriceInfoDTO, error) {
	if ingredientID == uuid.Nil {
		return nil, errors.NewValidationError("ingredient id is required")
	}

	infos, err := s.lookup(ctx, []uuid.UUID{ingredientID})
	if err != nil {
		return nil, err
	}

	dto := &inbound.PriceInfoDTO{IngredientID: ingredientID}
	if info, ok := infos[ingredientID]; ok {
		dto.Info = &info
	}
	dto.Freshness = s.Policy().Classify(dto.Info, s.now())
	s.metrics.PriceLookup(string(dto.Freshness))
	if dto.Freshness.NeedsRefresh() {
		s.enqueue(ingredientID)
	}
	return dto, nil
}

// Quotes prices every id under the active policy
func (s *Service) Quotes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.Service.Quotes", trace.WithAttributes(
		attribute.Int("ingredients.count", len(ids)),
	))
	defer span.End()

	infos, err := s.lookup(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	policy := s.Policy()
	now := s.now()
	quotes := make(map[uuid.UUID]pricing.Quote, len(ids))
	refreshes := 0
	for _, id := range ids {
		if _, done := quotes[id]; done {
			continue
		}
		var info *pricing.Info
		if cached, ok := infos[id]; ok {
			info = &cached
		}
		q := policy.Quote(id, info, now)
		quotes[id] = q
		s.metrics.PriceLookup(string(q.Freshness))
		if q.Freshness.NeedsRefresh() {
			s.enqueue(id)
			refreshes++
		}
	}

	span.SetAttributes(attribute.Int("prices.refresh_requested", refreshes))
	return quotes, nil
}

// lookup reads the cache first and fills misses from the catalog, writing
// catalog hits back. A failing cache degrades to catalog reads.
func (s *Service) lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Info, error) {
	out := make(map[uuid.UUID]pricing.Info, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cached, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn("Price cache read failed, using catalog", zap.Error(err))
		cached = nil
	}
	for id, info := range cached {
		out[id] = info
	}

	var misses []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	items, err := s.catalog.GetIngredients(ctx, misses)
	if err != nil {
		return nil, errors.NewDatabaseError("load ingredient prices", err)
	}
	for _, ing := range items {
		price := ing.Price()
		if price == nil {
			continue
		}
		info := pricing.Info{
			IngredientID: ing.ID(),
			Amount:       price.Amount,
			Currency:     price.Currency,
			UpdatedAt:    price.UpdatedAt,
		}
		out[info.IngredientID] = info
		if err := s.cache.Put(ctx, info); err != nil {
			s.logger.Warn("Failed to write price to cache",
				zap.String("ingredient_id", info.IngredientID.String()),
				zap.Error(err),
			)
		}
	}
	return out, nil
}

// enqueue requests a refresh without blocking. Requests for an id that is
// already queued are ignored; a full queue drops the request.
func (s *Service) enqueue(id uuid.UUID) {
	if s.refresher == nil {
		return
	}

	s.pendingMu.Lock()
	if _, ok := s.pending[id]; ok {
		s.pendingMu.Unlock()
		return
	}
	s.pending[id] = struct{}{}
	s.pendingMu.Unlock()

	select {
	case s.queue <- id:
	default:
		s.done(id)
		s.metrics.PriceRefresh(refreshDropped)
		s.logger.Warn("Price refresh queue full, dropping request",
			zap.String("ingredient_id", id.String()),
		)
	}
}

func (s *Service) done(id uuid.UUID) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// Start launches the refresh worker
func (s *Service) Start(ctx context.Context) error {
	if s.refresher == nil {
		s.logger.Info("No price feed configured, refresh worker disabled")
		return nil
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(workerCtx)
	}()

	s.logger.Info("Price refresh worker started",
		zap.Float64("rate_per_sec", float64(s.limiter.Limit())),
		zap.Int("burst", s.limiter.Burst()),
		zap.Int("queue_size", cap(s.queue)),
	)
	return nil
}

// Stop cancels the worker and waits for it to exit or ctx to expire
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Price refresh worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				s.done(id)
				return
			}
			s.refresh(ctx, id)
			s.done(id)
		}
	}
}

func (s *Service) refresh(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "pricing.Service.refresh", trace.WithAttributes(
		attribute.String("ingredient.id", id.String()),
	))
	defer span.End()

	log := s.logger.With(zap.String("ingredient_id", id.String()))

	price, err := s.refresher.TriggerPriceRefresh(ctx, id)
	if err != nil {
		span.RecordError(err)
		s.metrics.PriceRefresh(refreshError)
		log.Warn("Price refresh failed", zap.Error(err))
		return
	}
	if price == nil {
		s.metrics.PriceRefresh(refreshNotFound)
		log.Debug("Price feed has no price for ingredient")
		return
	}
	if price.UpdatedAt.IsZero() {
		price.UpdatedAt = s.now()
	}

	if err := s.catalog.UpdatePrice(ctx, id, *price); err != nil {
		span.RecordError(err)
		s.metrics.PriceRefresh(refreshError)
		log.Error("Failed to store refreshed price", zap.Error(err))
		return
	}

	info := pricing.Info{IngredientID: id, Amount: price.Amount, Currency: price.Currency, UpdatedAt: price.UpdatedAt}
	if err := s.cache.Put(ctx, info); err != nil {
		log.Warn("Failed to cache refreshed price", zap.Error(err))
		// the previous entry would otherwise shadow the catalog until it expires
		if err := s.cache.Invalidate(ctx, id); err != nil {
			log.Warn("Failed to invalidate cached price", zap.Error(err))
		}
	}

	s.metrics.PriceRefresh(refreshSuccess)
	log.Debug("Price refreshed",
		zap.Float64("amount", price.Amount),
		zap.String("currency", price.Currency),
	)
}
