package inbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// NutritionService merges logged and planned intake
type NutritionService interface {
	DailyNutrition(ctx context.Context, userID uuid.UUID, date shared.Date) (*nutrition.Daily, error)
	DailyRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]nutrition.Daily, error)
	// WindowAverage averages the given dates. A nil policy uses the configured default.
	WindowAverage(ctx context.Context, userID uuid.UUID, dates []shared.Date, policy *nutrition.AveragePolicy) (*nutrition.Average, error)
	WeeklySummary(ctx context.Context, userID uuid.UUID, anyDay shared.Date) (*WeeklySummary, error)
}

// FoodLogService records consumption
type FoodLogService interface {
	LogFood(ctx context.Context, cmd LogFoodCommand) (*foodlog.Entry, error)
	DeleteLog(ctx context.Context, userID, entryID uuid.UUID) error
}

// LogFoodCommand contains data for a consumption entry
type LogFoodCommand struct {
	UserID   uuid.UUID         `json:"-" validate:"required"`
	Date     shared.Date       `json:"date"`
	MealType string            `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
	RecipeID *uuid.UUID        `json:"recipe_id,omitempty"`
	Macros   *nutrition.Macros `json:"macros,omitempty"`
	Note     string            `json:"note,omitempty" validate:"max=500"`
}

// WeeklySummary is a Monday-to-Sunday view
type WeeklySummary struct {
	Range   shared.DateRange  `json:"range"`
	Days    []nutrition.Daily `json:"days"`
	Average nutrition.Average `json:"average"`
	// Sources counts days per source
	Sources map[nutrition.Source]int `json:"sources"`
}
