package shopping

import (
	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/recipe"
)

// Demand is the unscaled ingredient quantity needed by a set of plans
type Demand struct {
	// Quantities are in each ingredient's canonical unit
	Quantities map[uuid.UUID]float64
	// Order keeps first-seen ingredient order for stable output
	Order          []uuid.UUID
	MissingRecipes []uuid.UUID
	Occurrences    int
}

// RecipeIDs returns every recipe occurrence across plans; the same recipe
// on two dates or in two slots is listed twice.
func RecipeIDs(plans []*mealplan.MealPlan) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range plans {
		ids = append(ids, p.RecipeIDs()...)
	}
	return ids
}

// Aggregate sums item amounts per ingredient for every recipe occurrence.
// Demand is not de-duplicated across dates or slots. Unit overrides on
// recipe items are ignored.
func Aggregate(plans []*mealplan.MealPlan, recipes map[uuid.UUID]*recipe.Recipe) Demand {
	d := Demand{Quantities: make(map[uuid.UUID]float64)}
	missing := make(map[uuid.UUID]struct{})

	for _, id := range RecipeIDs(plans) {
		d.Occurrences++
		r, ok := recipes[id]
		if !ok {
			if _, seen := missing[id]; !seen {
				missing[id] = struct{}{}
				d.MissingRecipes = append(d.MissingRecipes, id)
			}
			continue
		}
		for _, item := range r.Items() {
			if _, seen := d.Quantities[item.IngredientID]; !seen {
				d.Order = append(d.Order, item.IngredientID)
			}
			d.Quantities[item.IngredientID] += item.Amount
		}
	}
	return d
}
