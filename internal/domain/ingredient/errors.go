package ingredient

import "errors"

var (
	ErrEmptyName        = errors.New("ingredient name is required")
	ErrInvalidUnit      = errors.New("unsupported canonical unit")
	ErrNegativeNutrient = errors.New("nutrient values must not be negative")
	ErrNegativePrice    = errors.New("price must not be negative")
	ErrInvalidCurrency  = errors.New("currency must be a 3 letter code")
	ErrNotFound         = errors.New("ingredient not found")
	ErrUnknownUnit      = errors.New("no conversion for unit")
	ErrInvalidFactor    = errors.New("conversion factor must be positive")
)
