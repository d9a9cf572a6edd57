package recipe

import (
	"github.com/google/uuid"
)

// RecipeItem is one ingredient line. Amount is in the ingredient's canonical
// unit; UnitOverride only changes how the line is displayed.
type RecipeItem struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Amount       float64   `json:"amount"`
	UnitOverride string    `json:"unit_override,omitempty"`
}

// NewRecipeItem creates a validated ingredient line
func NewRecipeItem(ingredientID uuid.UUID, amount float64, unitOverride string) (RecipeItem, error) {
	item := RecipeItem{IngredientID: ingredientID, Amount: amount, UnitOverride: unitOverride}
	if err := item.Validate(); err != nil {
		return RecipeItem{}, err
	}
	return item, nil
}

// Validate checks the line invariants
func (i RecipeItem) Validate() error {
	if i.IngredientID == uuid.Nil {
		return ErrMissingIngredient
	}
	if !(i.Amount > 0) {
		return ErrInvalidAmount
	}
	return nil
}
