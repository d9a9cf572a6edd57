// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// MockRecipeStore provides a mock implementation of RecipeStore
type MockRecipeStore struct {
	mock.Mock
}

func (m *MockRecipeStore) GetRecipe(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*recipe.Recipe); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecipeStore) GetRecipes(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ids)
	if rs, ok := args.Get(0).([]*recipe.Recipe); ok {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecipeStore) Save(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

// MockIngredientCatalog provides a mock implementation of IngredientCatalog
type MockIngredientCatalog struct {
	mock.Mock
}

func (m *MockIngredientCatalog) GetIngredient(ctx context.Context, id uuid.UUID) (*ingredient.Ingredient, error) {
	args := m.Called(ctx, id)
	if ing, ok := args.Get(0).(*ingredient.Ingredient); ok {
		return ing, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIngredientCatalog) GetIngredients(ctx context.Context, ids []uuid.UUID) ([]*ingredient.Ingredient, error) {
	args := m.Called(ctx, ids)
	if items, ok := args.Get(0).([]*ingredient.Ingredient); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIngredientCatalog) Save(ctx context.Context, ing *ingredient.Ingredient) error {
	return m.Called(ctx, ing).Error(0)
}

func (m *MockIngredientCatalog) UpdatePrice(ctx context.Context, id uuid.UUID, price ingredient.Price) error {
	return m.Called(ctx, id, price).Error(0)
}

func (m *MockIngredientCatalog) ListPricedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff, limit)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMealPlanRepository provides a mock implementation of MealPlanRepository
type MockMealPlanRepository struct {
	mock.Mock
}

func (m *MockMealPlanRepository) FindByDate(ctx context.Context, userID uuid.UUID, date shared.Date) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, userID, date)
	if p, ok := args.Get(0).(*mealplan.MealPlan); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMealPlanRepository) FindByDateRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*mealplan.MealPlan, error) {
	args := m.Called(ctx, userID, r)
	if ps, ok := args.Get(0).([]*mealplan.MealPlan); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMealPlanRepository) Ensure(ctx context.Context, userID uuid.UUID, date shared.Date) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, userID, date)
	if p, ok := args.Get(0).(*mealplan.MealPlan); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMealPlanRepository) UpdateSlots(ctx context.Context, plan *mealplan.MealPlan, expectedVersion int) error {
	args := m.Called(ctx, plan, expectedVersion)
	if args.Error(0) == nil {
		plan.MarkPersisted(expectedVersion+1, time.Now())
	}
	return args.Error(0)
}

// MockFoodLogRepository provides a mock implementation of FoodLogRepository
type MockFoodLogRepository struct {
	mock.Mock
}

func (m *MockFoodLogRepository) Create(ctx context.Context, entry *foodlog.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockFoodLogRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockFoodLogRepository) FindByDateRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*foodlog.Entry, error) {
	args := m.Called(ctx, userID, r)
	if es, ok := args.Get(0).([]*foodlog.Entry); ok {
		return es, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPriceCache provides a mock implementation of PriceCache
type MockPriceCache struct {
	mock.Mock
}

func (m *MockPriceCache) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Info, error) {
	args := m.Called(ctx, ids)
	if got, ok := args.Get(0).(map[uuid.UUID]pricing.Info); ok {
		return got, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPriceCache) Put(ctx context.Context, info pricing.Info) error {
	return m.Called(ctx, info).Error(0)
}

func (m *MockPriceCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockPriceRefresher provides a mock implementation of PriceRefresher
type MockPriceRefresher struct {
	mock.Mock
}

func (m *MockPriceRefresher) TriggerPriceRefresh(ctx context.Context, id uuid.UUID) (*ingredient.Price, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*ingredient.Price); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventPublisher provides a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, userID uuid.UUID, event shared.DomainEvent) error {
	return m.Called(ctx, userID, event).Error(0)
}

// MockPricingService provides a mock implementation of PricingService
type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) GetPriceInfo(ctx context.Context, id uuid.UUID) (*inbound.PriceInfoDTO, error) {
	args := m.Called(ctx, id)
	if dto, ok := args.Get(0).(*inbound.PriceInfoDTO); ok {
		return dto, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPricingService) Quotes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Quote, error) {
	args := m.Called(ctx, ids)
	if quotes, ok := args.Get(0).(map[uuid.UUID]pricing.Quote); ok {
		return quotes, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPricingService) Policy() pricing.Policy {
	return m.Called().Get(0).(pricing.Policy)
}

func (m *MockPricingService) UpdatePolicy(p pricing.Policy) error {
	return m.Called(p).Error(0)
}

// NopMetrics discards engine metrics
type NopMetrics struct{}

func (NopMetrics) SlotMutation(string, string)                     {}
func (NopMetrics) NutritionDay(string, bool)                       {}
func (NopMetrics) ShoppingListBuilt(int, int, bool, time.Duration) {}
func (NopMetrics) PriceLookup(string)                              {}
func (NopMetrics) PriceRefresh(string)                             {}
func (NopMetrics) CacheOperation(string, string)                   {}

var (
	_ outbound.RecipeStore        = (*MockRecipeStore)(nil)
	_ outbound.IngredientCatalog  = (*MockIngredientCatalog)(nil)
	_ outbound.MealPlanRepository = (*MockMealPlanRepository)(nil)
	_ outbound.FoodLogRepository  = (*MockFoodLogRepository)(nil)
	_ outbound.PriceCache         = (*MockPriceCache)(nil)
	_ outbound.PriceRefresher     = (*MockPriceRefresher)(nil)
	_ outbound.EventPublisher     = (*MockEventPublisher)(nil)
	_ outbound.EngineMetrics      = NopMetrics{}
	_ inbound.PricingService      = (*MockPricingService)(nil)
)
