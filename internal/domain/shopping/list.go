package shopping

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// Item is one derived shopping list line. It is never persisted.
type Item struct {
	IngredientID   uuid.UUID         `json:"ingredient_id"`
	Name           string            `json:"name"`
	Unit           ingredient.Unit   `json:"unit"`
	BaseQuantity   float64           `json:"base_quantity"`
	Quantity       float64           `json:"quantity"`
	UnitPrice      float64           `json:"unit_price"`
	Currency       string            `json:"currency"`
	EstimatedCost  float64           `json:"estimated_cost"`
	Freshness      pricing.Freshness `json:"price_freshness"`
	Estimate       bool              `json:"estimate"`
	PriceUpdatedAt *time.Time        `json:"price_updated_at,omitempty"`
}

// List is the priced, scaled demand for a date range
type List struct {
	Range                 shared.DateRange `json:"range"`
	Servings              int              `json:"servings"`
	Mode                  Mode             `json:"mode"`
	Multiplier            float64          `json:"multiplier"`
	Items                 []Item           `json:"items"`
	MissingRecipes        []uuid.UUID      `json:"missing_recipes,omitempty"`
	UnresolvedIngredients []uuid.UUID      `json:"unresolved_ingredients,omitempty"`
	Incomplete            bool             `json:"incomplete"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// Build scales demand by opts and prices each ingredient from quotes.
// Ingredients missing from the snapshot are reported, not listed. Items are
// ordered by name, case-insensitively, then by id.
func Build(d Demand, snapshot ingredient.Snapshot, quotes map[uuid.UUID]pricing.Quote, opts Options, now time.Time) List {
	list := List{
		Servings:       opts.Servings,
		Mode:           opts.Mode,
		Multiplier:     opts.Multiplier(),
		MissingRecipes: d.MissingRecipes,
		GeneratedAt:    now,
		Items:          make([]Item, 0, len(d.Order)),
	}

	for _, id := range d.Order {
		ing, ok := snapshot.Lookup(id)
		if !ok {
			list.UnresolvedIngredients = append(list.UnresolvedIngredients, id)
			continue
		}

		base := d.Quantities[id]
		qty := base * list.Multiplier
		q := quotes[id]

		list.Items = append(list.Items, Item{
			IngredientID:   id,
			Name:           ing.Name(),
			Unit:           ing.Unit(),
			BaseQuantity:   base,
			Quantity:       qty,
			UnitPrice:      q.UnitPrice,
			Currency:       q.Currency,
			EstimatedCost:  q.Cost(qty),
			Freshness:      q.Freshness,
			Estimate:       q.Estimate,
			PriceUpdatedAt: q.UpdatedAt,
		})
	}

	sort.SliceStable(list.Items, func(i, j int) bool {
		a, b := strings.ToLower(list.Items[i].Name), strings.ToLower(list.Items[j].Name)
		if a != b {
			return a < b
		}
		return list.Items[i].IngredientID.String() < list.Items[j].IngredientID.String()
	})

	list.Incomplete = len(list.MissingRecipes) > 0 || len(list.UnresolvedIngredients) > 0
	return list
}
