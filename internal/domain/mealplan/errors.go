package mealplan

import "errors"

var (
	ErrInvalidSlot   = errors.New("slot must be breakfast, lunch or dinner")
	ErrMissingUser   = errors.New("user id is required")
	ErrMissingDate   = errors.New("date is required")
	ErrMissingRecipe = errors.New("recipe id is required")
	ErrNotFound      = errors.New("meal plan not found")
	// ErrVersionConflict means the stored plan moved past the version the
	// caller read. The caller must re-read and retry.
	ErrVersionConflict = errors.New("meal plan version conflict")
)
