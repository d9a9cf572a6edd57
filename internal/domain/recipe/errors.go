package recipe

import "errors"

// Domain errors for recipe operations

var (
	ErrEmptyName         = errors.New("recipe name is required")
	ErrNameTooLong       = errors.New("recipe name must not exceed 200 characters")
	ErrInvalidAmount     = errors.New("ingredient amount must be greater than 0")
	ErrMissingIngredient = errors.New("ingredient reference is required")

	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrIngredientNotFound is returned by strict composition when a line
	// references an ingredient missing from the catalog snapshot.
	ErrIngredientNotFound = errors.New("ingredient not found in catalog")
)
