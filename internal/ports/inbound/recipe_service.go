// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/recipe"
)

// RecipeNutritionService derives recipe nutrition from the ingredient catalog
type RecipeNutritionService interface {
	// CreateRecipe validates every line against the catalog before saving
	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error)
	// RecipeNutrition computes totals. With strict set, an unknown ingredient
	// fails with a not found error instead of marking the result incomplete.
	RecipeNutrition(ctx context.Context, recipeID uuid.UUID, strict bool) (*recipe.Composition, error)
}

// CreateRecipeCommand contains data for creating a new recipe
type CreateRecipeCommand struct {
	Name  string              `json:"name" validate:"required,max=200"`
	Items []RecipeItemCommand `json:"items" validate:"dive"`
}

// RecipeItemCommand is one ingredient line
type RecipeItemCommand struct {
	IngredientID uuid.UUID `json:"ingredient_id" validate:"required"`
	Amount       float64   `json:"amount" validate:"gt=0"`
	UnitOverride string    `json:"unit_override,omitempty" validate:"max=32"`
}

// RecipeDTO is the API view of a recipe with its derived nutrition
type RecipeDTO struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Version   int                `json:"version"`
	Items     []RecipeItemDTO    `json:"items"`
	Nutrition recipe.Composition `json:"nutrition"`
}

// RecipeItemDTO is one ingredient line. DisplayAmount is Amount expressed in
// UnitOverride and is set only when the catalog knows that unit.
type RecipeItemDTO struct {
	recipe.RecipeItem
	DisplayAmount *float64 `json:"display_amount,omitempty"`
}
