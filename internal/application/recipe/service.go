// Package recipe provides the application layer for recipe composition
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/pkg/validation"
)

// RecipeService implements the recipe nutrition use cases
type RecipeService struct {
	recipes   outbound.RecipeStore
	resolver  *Resolver
	validator *validation.Validator
	logger    *zap.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	recipes outbound.RecipeStore,
	resolver *Resolver,
	validator *validation.Validator,
	logger *zap.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:   recipes,
		resolver:  resolver,
		validator: validator,
		logger:    logger.Named("recipe-service"),
	}
}

var _ inbound.RecipeNutritionService = (*RecipeService)(nil)

// CreateRecipe creates a recipe after checking every ingredient exists
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}

	s.logger.Info("Creating new recipe",
		zap.String("name", cmd.Name),
		zap.Int("items", len(cmd.Items)),
	)

	entity, err := recipe.NewRecipe(cmd.Name)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	for _, item := range cmd.Items {
		if err := entity.AddItem(item.IngredientID, item.Amount, item.UnitOverride); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	snapshot, err := s.resolver.Snapshot(ctx, entity)
	if err != nil {
		return nil, err
	}
	composition, err := recipe.ComputeNutrition(entity, snapshot)
	if err != nil {
		return nil, errors.NewIngredientNotFoundError(composition.Unresolved[0].String()).WithCause(err)
	}

	if err := s.recipes.Save(ctx, entity); err != nil {
		return nil, errors.NewDatabaseError("create recipe", err)
	}
	for _, event := range entity.Events() {
		s.logger.Debug("Recipe event", zap.String("event", event.EventName()))
	}

	s.logger.Info("Recipe created successfully",
		zap.String("recipe_id", entity.ID().String()),
		zap.Float64("kcal", composition.Totals.Calories),
	)

	return &inbound.RecipeDTO{
		ID:        entity.ID(),
		Name:      entity.Name(),
		Version:   entity.Version(),
		Items:     itemViews(entity, snapshot.Conversions()),
		Nutrition: composition,
	}, nil
}

// RecipeNutrition derives a recipe's nutrition from the current catalog
func (s *RecipeService) RecipeNutrition(ctx context.Context, recipeID uuid.UUID, strict bool) (*recipe.Composition, error) {
	entity, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		if stderrors.Is(err, recipe.ErrRecipeNotFound) {
			return nil, errors.NewRecipeNotFoundError(recipeID.String())
		}
		return nil, errors.NewDatabaseError("find recipe", err)
	}

	snapshot, err := s.resolver.Snapshot(ctx, entity)
	if err != nil {
		return nil, err
	}

	if !strict {
		c := recipe.ComposeNutrition(entity, snapshot)
		if c.Incomplete {
			s.logger.Debug("Recipe nutrition is incomplete",
				zap.String("recipe_id", recipeID.String()),
				zap.Int("unresolved", len(c.Unresolved)),
				zap.Int("missing_fields", len(c.Missing)),
			)
		}
		return &c, nil
	}

	c, err := recipe.ComputeNutrition(entity, snapshot)
	if err != nil {
		return nil, errors.NewIngredientNotFoundError(c.Unresolved[0].String()).WithCause(err)
	}
	return &c, nil
}

// itemViews attaches a display amount to every line whose unit override has
// a registered conversion
func itemViews(r *recipe.Recipe, conversions *ingredient.ConversionTable) []inbound.RecipeItemDTO {
	items := r.Items()
	out := make([]inbound.RecipeItemDTO, len(items))
	for i, item := range items {
		out[i] = inbound.RecipeItemDTO{RecipeItem: item}
		if item.UnitOverride == "" {
			continue
		}
		if v, err := conversions.FromCanonical(item.IngredientID, item.Amount, item.UnitOverride); err == nil {
			out[i].DisplayAmount = &v
		}
	}
	return out
}
