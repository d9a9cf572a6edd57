package nutrition

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/pkg/errors"
)

// LogFood records a consumption entry. A referenced recipe must exist.
func (a *Aggregator) LogFood(ctx context.Context, cmd inbound.LogFoodCommand) (*foodlog.Entry, error) {
	if err := a.validator.Struct(cmd); err != nil {
		return nil, err
	}

	mealType, err := foodlog.ParseMealType(cmd.MealType)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	entry, err := foodlog.NewEntry(cmd.UserID, cmd.Date, mealType, cmd.RecipeID, cmd.Macros, cmd.Note)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if entry.Macros == nil && entry.RecipeID != nil {
		comps, err := a.resolver.Load(ctx, []uuid.UUID{*entry.RecipeID})
		if err != nil {
			return nil, err
		}
		if _, ok := comps.Recipes[*entry.RecipeID]; !ok {
			return nil, errors.NewRecipeNotFoundError(entry.RecipeID.String())
		}
	}

	if err := a.logs.Create(ctx, entry); err != nil {
		return nil, errors.NewDatabaseError("create food log", err)
	}

	a.logger.Info("Food logged",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", entry.UserID.String()),
		zap.String("date", entry.Date.String()),
		zap.String("meal_type", string(entry.MealType)),
	)
	return entry, nil
}

// DeleteLog removes one of the user's entries
func (a *Aggregator) DeleteLog(ctx context.Context, userID, entryID uuid.UUID) error {
	if userID == uuid.Nil || entryID == uuid.Nil {
		return errors.NewValidationError("user id and entry id are required")
	}

	if err := a.logs.Delete(ctx, userID, entryID); err != nil {
		if stderrors.Is(err, foodlog.ErrNotFound) {
			return errors.NewNotFoundError("food log entry").WithMetadata("entry_id", entryID.String())
		}
		return errors.NewDatabaseError("delete food log", err)
	}
	return nil
}
