package inbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/domain/shopping"
)

// ShoppingService builds priced shopping lists from meal plans
type ShoppingService interface {
	BuildList(ctx context.Context, q BuildListQuery) (*shopping.List, error)
	// Summarize is a pure projection over a built list and the caller's
	// checked state.
	Summarize(items []shopping.Item, checked map[uuid.UUID]bool) shopping.Summary
}

// BuildListQuery selects and scales demand. Zero Servings means the
// configured default; empty Mode means normal.
type BuildListQuery struct {
	UserID   uuid.UUID        `validate:"required"`
	Range    shared.DateRange
	Servings int              `validate:"gte=0"`
	Mode     string           `validate:"omitempty,oneof=normal saving"`
}

// PricingService exposes the price cache and staleness policy
type PricingService interface {
	GetPriceInfo(ctx context.Context, ingredientID uuid.UUID) (*PriceInfoDTO, error)
	// Quotes prices every id without waiting on refreshes
	Quotes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Quote, error)
	Policy() pricing.Policy
	UpdatePolicy(p pricing.Policy) error
}

// PriceInfoDTO is the cached price with its freshness class. Info is nil when
// no price is known.
type PriceInfoDTO struct {
	IngredientID uuid.UUID         `json:"ingredient_id"`
	Info         *pricing.Info     `json:"price,omitempty"`
	Freshness    pricing.Freshness `json:"freshness"`
}
