package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// FoodLogRepository implements food log persistence using GORM
type FoodLogRepository struct {
	db *gorm.DB
}

// NewFoodLogRepository creates a new food log repository
func NewFoodLogRepository(db *gorm.DB) outbound.FoodLogRepository {
	return &FoodLogRepository{db: db}
}

// Create stores a new entry
func (r *FoodLogRepository) Create(ctx context.Context, entry *foodlog.Entry) error {
	return r.db.WithContext(ctx).Create(FoodLogToModel(entry)).Error
}

// Delete removes one of the user's entries
func (r *FoodLogRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&FoodLogModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return foodlog.ErrNotFound
	}
	return nil
}

// FindByDateRange returns the user's entries in rng ordered by date then
// creation time
func (r *FoodLogRepository) FindByDateRange(ctx context.Context, userID uuid.UUID, rng shared.DateRange) ([]*foodlog.Entry, error) {
	var models []FoodLogModel

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, rng.Start.String(), rng.End.String()).
		Order("date, created_at").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	entries := make([]*foodlog.Entry, 0, len(models))
	for i := range models {
		e, err := ModelToFoodLog(&models[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// compile-time port checks
var (
	_ outbound.IngredientCatalog  = (*IngredientRepository)(nil)
	_ outbound.RecipeStore        = (*RecipeRepository)(nil)
	_ outbound.MealPlanRepository = (*MealPlanRepository)(nil)
	_ outbound.FoodLogRepository  = (*FoodLogRepository)(nil)
)
