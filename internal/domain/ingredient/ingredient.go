// Package ingredient models catalog entries: nutrition per 100 canonical
// units and an optional unit price.
package ingredient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/nutrition"
)

// BaseQuantity is the reference amount nutrition values are expressed for.
const BaseQuantity = 100.0

// Unit is the canonical measurement unit of an ingredient
type Unit string

const (
	UnitGram       Unit = "g"
	UnitMilliliter Unit = "ml"
	UnitPiece      Unit = "piece"
)

// IsValid reports whether u is a supported canonical unit
func (u Unit) IsValid() bool {
	switch u {
	case UnitGram, UnitMilliliter, UnitPiece:
		return true
	}
	return false
}

// Nutrients holds values per 100 canonical units. A nil field is unknown.
type Nutrients struct {
	Calories *float64 `json:"kcal,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fiber    *float64 `json:"fiber,omitempty"`
	Sugar    *float64 `json:"sugar,omitempty"`
	Sodium   *float64 `json:"sodium,omitempty"`
}

// Macro field names reported when a value is unknown
const (
	FieldCalories = "kcal"
	FieldProtein  = "protein"
	FieldFat      = "fat"
	FieldCarbs    = "carbs"
)

// MacrosFor returns the macro contribution of amount canonical units and the
// names of macro fields that were unknown. Unknown fields contribute zero.
func (n Nutrients) MacrosFor(amount float64) (nutrition.Macros, []string) {
	ratio := amount / BaseQuantity

	var m nutrition.Macros
	var missing []string
	apply := func(v *float64, name string, dst *float64) {
		if v == nil {
			missing = append(missing, name)
			return
		}
		*dst = *v * ratio
	}
	apply(n.Calories, FieldCalories, &m.Calories)
	apply(n.Protein, FieldProtein, &m.Protein)
	apply(n.Fat, FieldFat, &m.Fat)
	apply(n.Carbs, FieldCarbs, &m.Carbs)
	return m, missing
}

func (n Nutrients) validate() error {
	for _, v := range []*float64{n.Calories, n.Protein, n.Fat, n.Carbs, n.Fiber, n.Sugar, n.Sodium} {
		if v != nil && *v < 0 {
			return ErrNegativeNutrient
		}
	}
	return nil
}

// Price is the cost of one canonical unit.
type Price struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"last_updated_at"`
}

// Validate checks amount and currency
func (p Price) Validate() error {
	if p.Amount < 0 {
		return ErrNegativePrice
	}
	if len(p.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// Ingredient is a catalog entry
type Ingredient struct {
	id        uuid.UUID
	name      string
	unit      Unit
	nutrients Nutrients
	price     *Price
	// displayUnits maps a display unit to canonical units per display unit
	displayUnits map[string]float64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewIngredient creates a validated catalog entry
func NewIngredient(name string, unit Unit, nutrients Nutrients) (*Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !unit.IsValid() {
		return nil, ErrInvalidUnit
	}
	if err := nutrients.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Ingredient{
		id:        uuid.New(),
		name:      name,
		unit:      unit,
		nutrients: nutrients,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds an ingredient from storage without re-validating it
func Reconstruct(id uuid.UUID, name string, unit Unit, nutrients Nutrients, price *Price, createdAt, updatedAt time.Time) *Ingredient {
	return &Ingredient{
		id:        id,
		name:      name,
		unit:      unit,
		nutrients: nutrients,
		price:     price,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (i *Ingredient) ID() uuid.UUID        { return i.id }
func (i *Ingredient) Name() string         { return i.name }
func (i *Ingredient) Unit() Unit           { return i.unit }
func (i *Ingredient) Nutrients() Nutrients { return i.nutrients }
func (i *Ingredient) CreatedAt() time.Time { return i.createdAt }
func (i *Ingredient) UpdatedAt() time.Time { return i.updatedAt }

// Price returns a copy of the current price, or nil when none is recorded
func (i *Ingredient) Price() *Price {
	if i.price == nil {
		return nil
	}
	p := *i.price
	return &p
}

// SetPrice records a new unit price
func (i *Ingredient) SetPrice(p Price) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Currency = strings.ToUpper(p.Currency)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	i.price = &p
	i.updatedAt = time.Now()
	return nil
}

// DisplayUnits returns a copy of the registered display unit factors
func (i *Ingredient) DisplayUnits() map[string]float64 {
	out := make(map[string]float64, len(i.displayUnits))
	for u, f := range i.displayUnits {
		out[u] = f
	}
	return out
}

// SetDisplayUnit records that one displayUnit equals factor canonical units
func (i *Ingredient) SetDisplayUnit(displayUnit string, factor float64) error {
	unit := normalizeUnit(displayUnit)
	if unit == "" {
		return ErrUnknownUnit
	}
	if factor <= 0 {
		return ErrInvalidFactor
	}
	if i.displayUnits == nil {
		i.displayUnits = make(map[string]float64)
	}
	i.displayUnits[unit] = factor
	return nil
}

// Validate checks the invariants of a reconstructed entry
func (i *Ingredient) Validate() error {
	if strings.TrimSpace(i.name) == "" {
		return ErrEmptyName
	}
	if !i.unit.IsValid() {
		return ErrInvalidUnit
	}
	if err := i.nutrients.validate(); err != nil {
		return err
	}
	if i.price != nil {
		return i.price.Validate()
	}
	return nil
}
