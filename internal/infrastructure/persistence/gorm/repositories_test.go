package gorm_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
	gormrepo "github.com/nutriplan/engine/internal/infrastructure/persistence/gorm"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/sqlite"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/test/testutils"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx         context.Context
	db          *gorm.DB
	ingredients outbound.IngredientCatalog
	recipes     outbound.RecipeStore
	plans       outbound.MealPlanRepository
	logs        outbound.FoodLogRepository
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sqlite.SetupDatabase(dsn, logger.Silent)
	require.NoError(s.T(), err)
	s.db = db

	s.ingredients = gormrepo.NewIngredientRepository(db)
	s.recipes = gormrepo.NewRecipeRepository(db)
	s.plans = gormrepo.NewMealPlanRepository(db)
	s.logs = gormrepo.NewFoodLogRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *RepositoryTestSuite) TestIngredient_RoundTripKeepsUnknownNutrients() {
	// Arrange
	updated := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	ing := testutils.NewIngredientBuilder().
		WithName("Oat milk").
		WithUnit(ingredient.UnitMilliliter).
		WithNutrients(ingredient.Nutrients{Calories: testutils.Float(46), Protein: testutils.Float(1)}).
		WithPrice(0.002, "EUR", updated).
		Build()

	// Act
	require.NoError(s.T(), s.ingredients.Save(s.ctx, ing))
	got, err := s.ingredients.GetIngredient(s.ctx, ing.ID())

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Oat milk", got.Name())
	assert.Equal(s.T(), ingredient.UnitMilliliter, got.Unit())
	require.NotNil(s.T(), got.Nutrients().Calories)
	assert.InDelta(s.T(), 46.0, *got.Nutrients().Calories, 1e-9)
	assert.Nil(s.T(), got.Nutrients().Fat)
	assert.Nil(s.T(), got.Nutrients().Carbs)
	require.NotNil(s.T(), got.Price())
	assert.Equal(s.T(), "EUR", got.Price().Currency)
	assert.WithinDuration(s.T(), updated, got.Price().UpdatedAt, time.Second)
}

func (s *RepositoryTestSuite) TestIngredient_DisplayUnitsRoundTrip() {
	ing := testutils.NewIngredientBuilder().WithDisplayUnit("cup", 240).Build()
	plain := testutils.NewIngredientBuilder().Build()
	require.NoError(s.T(), s.ingredients.Save(s.ctx, ing))
	require.NoError(s.T(), s.ingredients.Save(s.ctx, plain))

	got, err := s.ingredients.GetIngredient(s.ctx, ing.ID())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), map[string]float64{"cup": 240}, got.DisplayUnits())

	got, err = s.ingredients.GetIngredient(s.ctx, plain.ID())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), got.DisplayUnits())
}

func (s *RepositoryTestSuite) TestIngredient_NotFound() {
	_, err := s.ingredients.GetIngredient(s.ctx, uuid.New())

	assert.ErrorIs(s.T(), err, ingredient.ErrNotFound)
}

func (s *RepositoryTestSuite) TestIngredient_GetManyOmitsUnknown() {
	a := testutils.NewIngredientBuilder().Build()
	b := testutils.NewIngredientBuilder().Build()
	require.NoError(s.T(), s.ingredients.Save(s.ctx, a))
	require.NoError(s.T(), s.ingredients.Save(s.ctx, b))

	got, err := s.ingredients.GetIngredients(s.ctx, []uuid.UUID{a.ID(), uuid.New(), b.ID()})

	require.NoError(s.T(), err)
	ids := []uuid.UUID{got[0].ID(), got[1].ID()}
	assert.Len(s.T(), got, 2)
	assert.ElementsMatch(s.T(), []uuid.UUID{a.ID(), b.ID()}, ids)
}

func (s *RepositoryTestSuite) TestIngredient_UpdatePriceAndStaleListing() {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	fresh := testutils.NewIngredientBuilder().WithPrice(1, "USD", now).Build()
	old := testutils.NewIngredientBuilder().WithPrice(1, "USD", now.AddDate(0, -1, 0)).Build()
	never := testutils.NewIngredientBuilder().Build()
	for _, ing := range []*ingredient.Ingredient{fresh, old, never} {
		require.NoError(s.T(), s.ingredients.Save(s.ctx, ing))
	}

	stale, err := s.ingredients.ListPricedBefore(s.ctx, now.AddDate(0, 0, -7), 10)
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), []uuid.UUID{old.ID(), never.ID()}, stale)

	require.NoError(s.T(), s.ingredients.UpdatePrice(s.ctx, never.ID(), ingredient.Price{Amount: 0.3, Currency: "USD", UpdatedAt: now}))
	got, err := s.ingredients.GetIngredient(s.ctx, never.ID())
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got.Price())
	assert.InDelta(s.T(), 0.3, got.Price().Amount, 1e-9)

	err = s.ingredients.UpdatePrice(s.ctx, uuid.New(), ingredient.Price{Amount: 1, Currency: "USD", UpdatedAt: now})
	assert.ErrorIs(s.T(), err, ingredient.ErrNotFound)
}

func (s *RepositoryTestSuite) TestRecipe_SaveKeepsItemOrderAndReplacesItems() {
	first, second, third := uuid.New(), uuid.New(), uuid.New()
	rec := testutils.NewRecipeBuilder().WithName("Stew").
		WithItemID(third, 10).
		WithItemID(first, 20).
		WithItemID(second, 30).
		Build()

	require.NoError(s.T(), s.recipes.Save(s.ctx, rec))
	got, err := s.recipes.GetRecipe(s.ctx, rec.ID())
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Items(), 3)
	assert.Equal(s.T(), []uuid.UUID{third, first, second}, got.IngredientIDs())

	require.NoError(s.T(), rec.ReplaceItems([]recipe.RecipeItem{{IngredientID: second, Amount: 5, UnitOverride: "cup"}}))
	require.NoError(s.T(), s.recipes.Save(s.ctx, rec))

	got, err = s.recipes.GetRecipe(s.ctx, rec.ID())
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Items(), 1)
	assert.Equal(s.T(), "cup", got.Items()[0].UnitOverride)

	many, err := s.recipes.GetRecipes(s.ctx, []uuid.UUID{rec.ID(), uuid.New()})
	require.NoError(s.T(), err)
	assert.Len(s.T(), many, 1)
}

func (s *RepositoryTestSuite) TestRecipe_NotFound() {
	_, err := s.recipes.GetRecipe(s.ctx, uuid.New())

	assert.ErrorIs(s.T(), err, recipe.ErrRecipeNotFound)
}

func (s *RepositoryTestSuite) TestMealPlan_EnsureIsIdempotent() {
	userID := uuid.New()
	date := shared.MustParseDate("2024-05-01")

	first, err := s.plans.Ensure(s.ctx, userID, date)
	require.NoError(s.T(), err)
	second, err := s.plans.Ensure(s.ctx, userID, date)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), first.ID(), second.ID())
	assert.Equal(s.T(), 1, second.Version())
	assert.True(s.T(), second.IsEmpty())
}

func (s *RepositoryTestSuite) TestMealPlan_ConcurrentEnsureYieldsOnePlan() {
	userID := uuid.New()
	date := shared.MustParseDate("2024-05-02")

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.plans.Ensure(s.ctx, userID, date)
			if assert.NoError(s.T(), err) {
				ids[i] = p.ID()
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(s.T(), ids[0], id)
	}
}

func (s *RepositoryTestSuite) TestMealPlan_UpdateSlotsIsVersionChecked() {
	// Arrange
	userID, recipeID := uuid.New(), uuid.New()
	date := shared.MustParseDate("2024-05-03")
	plan, err := s.plans.Ensure(s.ctx, userID, date)
	require.NoError(s.T(), err)
	stale, err := s.plans.FindByDate(s.ctx, userID, date)
	require.NoError(s.T(), err)

	// Act
	changed, err := plan.AddToSlot(mealplan.SlotLunch, recipeID)
	require.NoError(s.T(), err)
	require.True(s.T(), changed)
	require.NoError(s.T(), s.plans.UpdateSlots(s.ctx, plan, 1))

	_, err = stale.AddToSlot(mealplan.SlotDinner, recipeID)
	require.NoError(s.T(), err)
	conflict := s.plans.UpdateSlots(s.ctx, stale, 1)

	// Assert
	assert.Equal(s.T(), 2, plan.Version())
	assert.ErrorIs(s.T(), conflict, mealplan.ErrVersionConflict)

	stored, err := s.plans.FindByDate(s.ctx, userID, date)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, stored.Version())
	assert.Equal(s.T(), []uuid.UUID{recipeID}, stored.Slot(mealplan.SlotLunch))
	assert.Empty(s.T(), stored.Slot(mealplan.SlotDinner))
}

func (s *RepositoryTestSuite) TestMealPlan_FindByDateRange() {
	userID := uuid.New()
	for _, d := range []string{"2024-05-03", "2024-05-01", "2024-05-09"} {
		_, err := s.plans.Ensure(s.ctx, userID, shared.MustParseDate(d))
		require.NoError(s.T(), err)
	}
	_, err := s.plans.Ensure(s.ctx, uuid.New(), shared.MustParseDate("2024-05-02"))
	require.NoError(s.T(), err)

	rng, err := shared.ParseDateRange("2024-05-01", "2024-05-07")
	require.NoError(s.T(), err)
	plans, err := s.plans.FindByDateRange(s.ctx, userID, rng)

	require.NoError(s.T(), err)
	require.Len(s.T(), plans, 2)
	assert.Equal(s.T(), "2024-05-01", plans[0].Date().String())
	assert.Equal(s.T(), "2024-05-03", plans[1].Date().String())
}

func (s *RepositoryTestSuite) TestMealPlan_FindByDateNotFound() {
	_, err := s.plans.FindByDate(s.ctx, uuid.New(), shared.MustParseDate("2024-05-01"))

	assert.ErrorIs(s.T(), err, mealplan.ErrNotFound)
}

func (s *RepositoryTestSuite) TestFoodLog_CreateFindDelete() {
	userID := uuid.New()
	withMacros := testutils.FoodLogWithMacros(userID, "2024-05-01", nutrition.Macros{Calories: 300, Protein: 10})
	withRecipe := testutils.FoodLogWithRecipe(userID, "2024-05-02", uuid.New())
	outside := testutils.FoodLogWithMacros(userID, "2024-06-01", nutrition.Macros{Calories: 1})
	for _, e := range []*foodlog.Entry{withMacros, withRecipe, outside} {
		require.NoError(s.T(), s.logs.Create(s.ctx, e))
	}

	rng, err := shared.ParseDateRange("2024-05-01", "2024-05-31")
	require.NoError(s.T(), err)
	entries, err := s.logs.FindByDateRange(s.ctx, userID, rng)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
	require.NotNil(s.T(), entries[0].Macros)
	assert.InDelta(s.T(), 300.0, entries[0].Macros.Calories, 1e-9)
	assert.Nil(s.T(), entries[1].Macros)
	assert.Equal(s.T(), withRecipe.RecipeID, entries[1].RecipeID)

	assert.ErrorIs(s.T(), s.logs.Delete(s.ctx, uuid.New(), withMacros.ID), foodlog.ErrNotFound)
	require.NoError(s.T(), s.logs.Delete(s.ctx, userID, withMacros.ID))
	assert.ErrorIs(s.T(), s.logs.Delete(s.ctx, userID, withMacros.ID), foodlog.ErrNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
