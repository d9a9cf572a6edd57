package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// ErrCacheMiss is returned by CacheRepository.Get for absent keys
var ErrCacheMiss = errors.New("cache miss")

// PriceCache holds the last known price per ingredient
type PriceCache interface {
	// GetMany returns cached prices; ids without an entry are omitted
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Info, error)
	Put(ctx context.Context, info pricing.Info) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// PriceRefresher fetches a current price from an external feed
type PriceRefresher interface {
	TriggerPriceRefresh(ctx context.Context, ingredientID uuid.UUID) (*ingredient.Price, error)
}

// EventPublisher fans domain events out to interested subscribers
type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event shared.DomainEvent) error
}

// EngineMetrics records business metrics for the engine's use cases
type EngineMetrics interface {
	SlotMutation(op, outcome string)
	NutritionDay(source string, incomplete bool)
	ShoppingListBuilt(items, estimates int, incomplete bool, duration time.Duration)
	PriceLookup(freshness string)
	PriceRefresh(outcome string)
	CacheOperation(operation, status string)
}
