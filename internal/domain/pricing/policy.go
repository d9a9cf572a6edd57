// Package pricing classifies cached ingredient prices and turns them into
// per-unit quotes for the shopping list.
package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Freshness is the age class of a cached price
type Freshness string

const (
	Fresh   Freshness = "fresh"
	Stale   Freshness = "stale"
	Absent  Freshness = "absent"
	Expired Freshness = "expired"
)

// NeedsRefresh reports whether a refresh should be requested
func (f Freshness) NeedsRefresh() bool {
	return f != Fresh
}

var (
	ErrInvalidFreshWindow = errors.New("fresh_for must be positive")
	ErrInvalidExpiry      = errors.New("expire_after must be zero or longer than fresh_for")
	ErrInvalidDefault     = errors.New("default unit price must not be negative")
	ErrInvalidCurrency    = errors.New("default currency must be a 3 letter code")
)

// Info is the cached price of one ingredient per canonical unit
type Info struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	UpdatedAt    time.Time `json:"last_updated_at"`
}

// Policy holds the staleness thresholds and the fallback price.
type Policy struct {
	// FreshFor is how long after UpdatedAt a price counts as fresh
	FreshFor time.Duration `mapstructure:"fresh_for"`
	// ExpireAfter turns prices older than this into Expired. Zero keeps
	// stale prices usable forever.
	ExpireAfter      time.Duration `mapstructure:"expire_after"`
	DefaultUnitPrice float64       `mapstructure:"default_unit_price"`
	DefaultCurrency  string        `mapstructure:"default_currency"`
	// UseStalePrices serves stale prices as estimates instead of falling
	// back to the default price.
	UseStalePrices bool `mapstructure:"use_stale_prices"`
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		FreshFor:         7 * 24 * time.Hour,
		ExpireAfter:      0,
		DefaultUnitPrice: 0.01,
		DefaultCurrency:  "USD",
		UseStalePrices:   true,
	}
}

// Validate checks the thresholds
func (p Policy) Validate() error {
	if p.FreshFor <= 0 {
		return ErrInvalidFreshWindow
	}
	if p.ExpireAfter < 0 || (p.ExpireAfter > 0 && p.ExpireAfter <= p.FreshFor) {
		return ErrInvalidExpiry
	}
	if p.DefaultUnitPrice < 0 {
		return ErrInvalidDefault
	}
	if len(p.DefaultCurrency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// Classify returns the freshness of info at now. A nil info is Absent.
func (p Policy) Classify(info *Info, now time.Time) Freshness {
	if info == nil {
		return Absent
	}
	age := now.Sub(info.UpdatedAt)
	switch {
	case age <= p.FreshFor:
		return Fresh
	case p.ExpireAfter > 0 && age > p.ExpireAfter:
		return Expired
	default:
		return Stale
	}
}

// Quote is the unit price chosen for an ingredient
type Quote struct {
	IngredientID uuid.UUID  `json:"ingredient_id"`
	UnitPrice    float64    `json:"unit_price"`
	Currency     string     `json:"currency"`
	Freshness    Freshness  `json:"freshness"`
	Estimate     bool       `json:"estimate"`
	UpdatedAt    *time.Time `json:"last_updated_at,omitempty"`
}

// Cost prices quantity canonical units
func (q Quote) Cost(quantity float64) float64 {
	return q.UnitPrice * quantity
}

// Quote picks the unit price for id. Fresh prices are exact, stale prices are
// estimates, and absent or expired prices fall back to the default price.
func (p Policy) Quote(id uuid.UUID, info *Info, now time.Time) Quote {
	freshness := p.Classify(info, now)
	q := Quote{IngredientID: id, Freshness: freshness}

	useCached := freshness == Fresh || (freshness == Stale && p.UseStalePrices)
	if useCached {
		updated := info.UpdatedAt
		q.UnitPrice = info.Amount
		q.Currency = info.Currency
		q.UpdatedAt = &updated
		q.Estimate = freshness != Fresh
		return q
	}

	q.UnitPrice = p.DefaultUnitPrice
	q.Currency = p.DefaultCurrency
	q.Estimate = true
	if info != nil {
		updated := info.UpdatedAt
		q.UpdatedAt = &updated
	}
	return q
}
