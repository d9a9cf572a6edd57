// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// IngredientCatalog is the authoritative source of nutrition and price records
type IngredientCatalog interface {
	// GetIngredient returns ingredient.ErrNotFound when id is unknown
	GetIngredient(ctx context.Context, id uuid.UUID) (*ingredient.Ingredient, error)
	// GetIngredients returns the ingredients that exist; unknown ids are omitted
	GetIngredients(ctx context.Context, ids []uuid.UUID) ([]*ingredient.Ingredient, error)
	Save(ctx context.Context, ing *ingredient.Ingredient) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price ingredient.Price) error
	// ListPricedBefore returns ids whose price is missing or older than cutoff
	ListPricedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// RecipeStore loads recipes with their items
type RecipeStore interface {
	// GetRecipe returns recipe.ErrRecipeNotFound when id is unknown
	GetRecipe(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error)
	// GetRecipes returns the recipes that exist; unknown ids are omitted
	GetRecipes(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error)
	Save(ctx context.Context, r *recipe.Recipe) error
}

// MealPlanRepository persists meal plans keyed by (user, date)
type MealPlanRepository interface {
	// FindByDate returns mealplan.ErrNotFound when no plan exists
	FindByDate(ctx context.Context, userID uuid.UUID, date shared.Date) (*mealplan.MealPlan, error)
	FindByDateRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*mealplan.MealPlan, error)
	// Ensure returns the plan for date, inserting an empty one if absent.
	// Concurrent callers all observe the same plan.
	Ensure(ctx context.Context, userID uuid.UUID, date shared.Date) (*mealplan.MealPlan, error)
	// UpdateSlots writes the plan's slots only if the stored version still
	// equals expectedVersion, and returns mealplan.ErrVersionConflict
	// otherwise. On success the plan carries the new version.
	UpdateSlots(ctx context.Context, plan *mealplan.MealPlan, expectedVersion int) error
}

// FoodLogRepository persists consumption entries
type FoodLogRepository interface {
	Create(ctx context.Context, entry *foodlog.Entry) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	FindByDateRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*foodlog.Entry, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	// Get returns ErrCacheMiss when key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Batch operations
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	Ping(ctx context.Context) error
}
