package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// IngredientRepository implements the ingredient catalog using GORM
type IngredientRepository struct {
	db *gorm.DB
}

// NewIngredientRepository creates a new ingredient catalog repository
func NewIngredientRepository(db *gorm.DB) outbound.IngredientCatalog {
	return &IngredientRepository{db: db}
}

// GetIngredient finds an ingredient by ID
func (r *IngredientRepository) GetIngredient(ctx context.Context, id uuid.UUID) (*ingredient.Ingredient, error) {
	var model IngredientModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ingredient.ErrNotFound
		}
		return nil, result.Error
	}

	return ModelToIngredient(&model), nil
}

// GetIngredients loads every ingredient in ids that exists
func (r *IngredientRepository) GetIngredients(ctx context.Context, ids []uuid.UUID) ([]*ingredient.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []IngredientModel
	err := forEachChunk(ids, func(chunk []uuid.UUID) error {
		var page []IngredientModel
		if err := r.db.WithContext(ctx).Where("id IN ?", chunk).Find(&page).Error; err != nil {
			return err
		}
		models = append(models, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*ingredient.Ingredient, len(models))
	for i := range models {
		out[i] = ModelToIngredient(&models[i])
	}
	return out, nil
}

// Save inserts or fully replaces a catalog entry
func (r *IngredientRepository) Save(ctx context.Context, ing *ingredient.Ingredient) error {
	model := IngredientToModel(ing)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// UpdatePrice overwrites the price columns of one ingredient
func (r *IngredientRepository) UpdatePrice(ctx context.Context, id uuid.UUID, price ingredient.Price) error {
	if err := price.Validate(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&IngredientModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"price_amount":     price.Amount,
			"price_currency":   price.Currency,
			"price_updated_at": price.UpdatedAt,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ingredient.ErrNotFound
	}
	return nil
}

// ListPricedBefore returns ingredients never priced or priced before cutoff,
// oldest first
func (r *IngredientRepository) ListPricedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	query := r.db.WithContext(ctx).Model(&IngredientModel{}).
		Where("price_updated_at IS NULL OR price_updated_at < ?", cutoff).
		Order("price_updated_at")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
