package testutils

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/domain/shopping"
	"github.com/nutriplan/engine/internal/ports/inbound"
)

// MockMealPlanService provides a mock implementation of MealPlanService
type MockMealPlanService struct {
	mock.Mock
}

func (m *MockMealPlanService) GetPlan(ctx context.Context, userID uuid.UUID, date shared.Date) (*inbound.MealPlanDTO, error) {
	args := m.Called(ctx, userID, date)
	if dto, ok := args.Get(0).(*inbound.MealPlanDTO); ok {
		return dto, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMealPlanService) ListPlans(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*inbound.MealPlanDTO, error) {
	args := m.Called(ctx, userID, r)
	if dtos, ok := args.Get(0).([]*inbound.MealPlanDTO); ok {
		return dtos, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMealPlanService) Ensure(ctx context.Context, userID uuid.UUID, date shared.Date) (*inbound.MealPlanDTO, error) {
	args := m.Called(ctx, userID, date)
	if dto, ok := args.Get(0).(*inbound.MealPlanDTO); ok {
		return dto, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMealPlanService) SetSlot(ctx context.Context, cmd inbound.SetSlotCommand) (*inbound.SlotMutationResult, error) {
	return mutationResult(m.Called(ctx, cmd))
}

func (m *MockMealPlanService) AddToSlot(ctx context.Context, cmd inbound.SlotRecipeCommand) (*inbound.SlotMutationResult, error) {
	return mutationResult(m.Called(ctx, cmd))
}

func (m *MockMealPlanService) RemoveFromSlot(ctx context.Context, cmd inbound.SlotRecipeCommand) (*inbound.SlotMutationResult, error) {
	return mutationResult(m.Called(ctx, cmd))
}

func (m *MockMealPlanService) ReplaceInSlot(ctx context.Context, cmd inbound.ReplaceInSlotCommand) (*inbound.SlotMutationResult, error) {
	return mutationResult(m.Called(ctx, cmd))
}

func mutationResult(args mock.Arguments) (*inbound.SlotMutationResult, error) {
	if res, ok := args.Get(0).(*inbound.SlotMutationResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNutritionService provides a mock implementation of NutritionService
type MockNutritionService struct {
	mock.Mock
}

func (m *MockNutritionService) DailyNutrition(ctx context.Context, userID uuid.UUID, date shared.Date) (*nutrition.Daily, error) {
	args := m.Called(ctx, userID, date)
	if d, ok := args.Get(0).(*nutrition.Daily); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNutritionService) DailyRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]nutrition.Daily, error) {
	args := m.Called(ctx, userID, r)
	if days, ok := args.Get(0).([]nutrition.Daily); ok {
		return days, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNutritionService) WindowAverage(ctx context.Context, userID uuid.UUID, dates []shared.Date, policy *nutrition.AveragePolicy) (*nutrition.Average, error) {
	args := m.Called(ctx, userID, dates, policy)
	if avg, ok := args.Get(0).(*nutrition.Average); ok {
		return avg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNutritionService) WeeklySummary(ctx context.Context, userID uuid.UUID, anyDay shared.Date) (*inbound.WeeklySummary, error) {
	args := m.Called(ctx, userID, anyDay)
	if s, ok := args.Get(0).(*inbound.WeeklySummary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockFoodLogService provides a mock implementation of FoodLogService
type MockFoodLogService struct {
	mock.Mock
}

func (m *MockFoodLogService) LogFood(ctx context.Context, cmd inbound.LogFoodCommand) (*foodlog.Entry, error) {
	args := m.Called(ctx, cmd)
	if e, ok := args.Get(0).(*foodlog.Entry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFoodLogService) DeleteLog(ctx context.Context, userID, entryID uuid.UUID) error {
	return m.Called(ctx, userID, entryID).Error(0)
}

// MockRecipeNutritionService provides a mock implementation of RecipeNutritionService
type MockRecipeNutritionService struct {
	mock.Mock
}

func (m *MockRecipeNutritionService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, cmd)
	if dto, ok := args.Get(0).(*inbound.RecipeDTO); ok {
		return dto, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecipeNutritionService) RecipeNutrition(ctx context.Context, recipeID uuid.UUID, strict bool) (*recipe.Composition, error) {
	args := m.Called(ctx, recipeID, strict)
	if c, ok := args.Get(0).(*recipe.Composition); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockShoppingService provides a mock implementation of ShoppingService
type MockShoppingService struct {
	mock.Mock
}

func (m *MockShoppingService) BuildList(ctx context.Context, q inbound.BuildListQuery) (*shopping.List, error) {
	args := m.Called(ctx, q)
	if l, ok := args.Get(0).(*shopping.List); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShoppingService) Summarize(items []shopping.Item, checked map[uuid.UUID]bool) shopping.Summary {
	return m.Called(items, checked).Get(0).(shopping.Summary)
}

var (
	_ inbound.MealPlanService        = (*MockMealPlanService)(nil)
	_ inbound.NutritionService       = (*MockNutritionService)(nil)
	_ inbound.FoodLogService         = (*MockFoodLogService)(nil)
	_ inbound.RecipeNutritionService = (*MockRecipeNutritionService)(nil)
	_ inbound.ShoppingService        = (*MockShoppingService)(nil)
)
