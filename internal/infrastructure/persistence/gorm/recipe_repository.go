// Package gorm provides GORM-based repository implementations
package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// RecipeRepository implements the recipe store using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) outbound.RecipeStore {
	return &RecipeRepository{db: db}
}

// GetRecipe finds a recipe by ID with its items
func (r *RecipeRepository) GetRecipe(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var model RecipeModel

	result := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&model, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrRecipeNotFound
		}
		return nil, result.Error
	}

	return ModelToRecipe(&model), nil
}

// GetRecipes loads every recipe in ids that exists, in one query per table
func (r *RecipeRepository) GetRecipes(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []RecipeModel
	err := forEachChunk(ids, func(chunk []uuid.UUID) error {
		var page []RecipeModel
		result := r.db.WithContext(ctx).
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Where("id IN ?", chunk).
			Find(&page)
		if result.Error != nil {
			return result.Error
		}
		models = append(models, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipes := make([]*recipe.Recipe, len(models))
	for i := range models {
		recipes[i] = ModelToRecipe(&models[i])
	}
	return recipes, nil
}

// Save upserts the recipe row and replaces its items
func (r *RecipeRepository) Save(ctx context.Context, rec *recipe.Recipe) error {
	model := RecipeToModel(rec)
	items := model.Items
	model.Items = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "version", "updated_at"}),
		}).Omit("Items").Create(model)
		if result.Error != nil {
			return result.Error
		}

		if err := tx.Where("recipe_id = ?", model.ID).Delete(&RecipeItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// chunkSize keeps IN lists under SQLite's bound parameter limit
const chunkSize = 500

func forEachChunk(ids []uuid.UUID, fn func([]uuid.UUID) error) error {
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}
