package recipe

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/nutrition"
)

// MissingField names an unknown nutrient value on one ingredient
type MissingField struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Field        string    `json:"field"`
}

// Composition is the derived nutrition of a recipe
type Composition struct {
	RecipeID   uuid.UUID        `json:"recipe_id"`
	Totals     nutrition.Macros `json:"totals"`
	Incomplete bool             `json:"incomplete"`
	// Unresolved lists ingredient ids absent from the snapshot
	Unresolved []uuid.UUID    `json:"unresolved,omitempty"`
	Missing    []MissingField `json:"missing,omitempty"`
}

// ComputeNutrition sums the macros of every line and fails when a line's
// ingredient is not in the snapshot. Used when a recipe is saved.
func ComputeNutrition(r *Recipe, snapshot ingredient.Snapshot) (Composition, error) {
	c := ComposeNutrition(r, snapshot)
	if len(c.Unresolved) > 0 {
		return c, fmt.Errorf("%w: %s", ErrIngredientNotFound, c.Unresolved[0])
	}
	return c, nil
}

// ComposeNutrition sums the macros of every line. Unknown ingredients and
// unknown nutrient fields contribute zero and mark the result incomplete.
func ComposeNutrition(r *Recipe, snapshot ingredient.Snapshot) Composition {
	c := Composition{RecipeID: r.id}

	for _, item := range r.items {
		ing, ok := snapshot.Lookup(item.IngredientID)
		if !ok {
			c.Incomplete = true
			c.Unresolved = appendUnique(c.Unresolved, item.IngredientID)
			continue
		}

		macros, missing := ing.Nutrients().MacrosFor(item.Amount)
		c.Totals = c.Totals.Add(macros)
		for _, field := range missing {
			c.Incomplete = true
			c.Missing = appendMissing(c.Missing, MissingField{IngredientID: item.IngredientID, Field: field})
		}
	}

	return c
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func appendMissing(fields []MissingField, f MissingField) []MissingField {
	for _, existing := range fields {
		if existing == f {
			return fields
		}
	}
	return append(fields, f)
}
