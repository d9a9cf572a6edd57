package recipe_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	apprecipe "github.com/nutriplan/engine/internal/application/recipe"
	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/pkg/validation"
	"github.com/nutriplan/engine/test/testutils"
)

type RecipeServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	recipes  *testutils.MockRecipeStore
	catalog  *testutils.MockIngredientCatalog
	resolver *apprecipe.Resolver
	service  *apprecipe.RecipeService

	beef   *ingredient.Ingredient
	noodle *ingredient.Ingredient
}

func (s *RecipeServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.recipes = new(testutils.MockRecipeStore)
	s.catalog = new(testutils.MockIngredientCatalog)
	s.resolver = apprecipe.NewResolver(s.recipes, s.catalog, zap.NewNop())
	s.service = apprecipe.NewRecipeService(s.recipes, s.resolver, validation.New(), zap.NewNop())

	s.beef = testutils.NewIngredientBuilder().WithName("Beef").WithMacros(250, 26, 15, 0).Build()
	s.noodle = testutils.NewIngredientBuilder().WithName("Noodle").WithMacros(110, 4, 1, 25).Build()
}

func (s *RecipeServiceTestSuite) TearDownTest() {
	s.recipes.AssertExpectations(s.T())
	s.catalog.AssertExpectations(s.T())
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_Success() {
	// Arrange
	cmd := inbound.CreateRecipeCommand{
		Name: "Beef noodles",
		Items: []inbound.RecipeItemCommand{
			{IngredientID: s.beef.ID(), Amount: 200},
			{IngredientID: s.noodle.ID(), Amount: 150, UnitOverride: "cup"},
		},
	}
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{s.beef.ID(), s.noodle.ID()}).
		Return([]*ingredient.Ingredient{s.beef, s.noodle}, nil)
	s.recipes.On("Save", mock.Anything, mock.AnythingOfType("*recipe.Recipe")).Return(nil)

	// Act
	dto, err := s.service.CreateRecipe(s.ctx, cmd)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Beef noodles", dto.Name)
	assert.InDelta(s.T(), 665.0, dto.Nutrition.Totals.Calories, 1e-9)
	assert.Len(s.T(), dto.Items, 2)
	assert.Equal(s.T(), "cup", dto.Items[1].UnitOverride)
	assert.Nil(s.T(), dto.Items[1].DisplayAmount, "noodle has no cup conversion")
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_DisplayAmountFromCatalog() {
	// Arrange
	noodle := testutils.NewIngredientBuilder().WithName("Noodle").WithMacros(110, 4, 1, 25).
		WithDisplayUnit("cup", 75).
		Build()
	cmd := inbound.CreateRecipeCommand{
		Name: "Beef noodles",
		Items: []inbound.RecipeItemCommand{
			{IngredientID: s.beef.ID(), Amount: 200, UnitOverride: "cup"},
			{IngredientID: noodle.ID(), Amount: 150, UnitOverride: " Cup "},
		},
	}
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{s.beef.ID(), noodle.ID()}).
		Return([]*ingredient.Ingredient{s.beef, noodle}, nil)
	s.recipes.On("Save", mock.Anything, mock.AnythingOfType("*recipe.Recipe")).Return(nil)

	// Act
	dto, err := s.service.CreateRecipe(s.ctx, cmd)

	// Assert
	require.NoError(s.T(), err)
	require.Len(s.T(), dto.Items, 2)
	assert.Nil(s.T(), dto.Items[0].DisplayAmount)
	require.NotNil(s.T(), dto.Items[1].DisplayAmount)
	assert.InDelta(s.T(), 2.0, *dto.Items[1].DisplayAmount, 1e-9)
	assert.InDelta(s.T(), 150.0, dto.Items[1].Amount, 1e-9)
	assert.InDelta(s.T(), 665.0, dto.Nutrition.Totals.Calories, 1e-9)
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_UnknownIngredient() {
	ghost := uuid.New()
	cmd := inbound.CreateRecipeCommand{
		Name:  "Ghost stew",
		Items: []inbound.RecipeItemCommand{{IngredientID: s.beef.ID(), Amount: 100}, {IngredientID: ghost, Amount: 10}},
	}
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{s.beef.ID(), ghost}).
		Return([]*ingredient.Ingredient{s.beef}, nil)

	_, err := s.service.CreateRecipe(s.ctx, cmd)

	require.Error(s.T(), err)
	assert.True(s.T(), errors.Is(err, errors.CodeIngredientNotFound))
	s.recipes.AssertNotCalled(s.T(), "Save", mock.Anything, mock.Anything)
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_InvalidAmount() {
	cmd := inbound.CreateRecipeCommand{
		Name:  "Nothing",
		Items: []inbound.RecipeItemCommand{{IngredientID: s.beef.ID(), Amount: 0}},
	}

	_, err := s.service.CreateRecipe(s.ctx, cmd)

	assert.True(s.T(), errors.Is(err, errors.CodeValidationFailed))
}

func (s *RecipeServiceTestSuite) TestRecipeNutrition() {
	ghost := uuid.New()
	r := testutils.NewRecipeBuilder().WithItem(s.beef, 100).WithItemID(ghost, 50).Build()
	s.recipes.On("GetRecipe", mock.Anything, r.ID()).Return(r, nil)
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{s.beef.ID(), ghost}).
		Return([]*ingredient.Ingredient{s.beef}, nil)

	s.Run("lenient degrades to incomplete", func() {
		c, err := s.service.RecipeNutrition(s.ctx, r.ID(), false)

		require.NoError(s.T(), err)
		assert.True(s.T(), c.Incomplete)
		assert.Equal(s.T(), []uuid.UUID{ghost}, c.Unresolved)
		assert.InDelta(s.T(), 250.0, c.Totals.Calories, 1e-9)
	})

	s.Run("strict fails", func() {
		_, err := s.service.RecipeNutrition(s.ctx, r.ID(), true)

		assert.True(s.T(), errors.Is(err, errors.CodeIngredientNotFound))
	})
}

func (s *RecipeServiceTestSuite) TestRecipeNutrition_NotFound() {
	id := uuid.New()
	s.recipes.On("GetRecipe", mock.Anything, id).Return(nil, recipe.ErrRecipeNotFound)

	_, err := s.service.RecipeNutrition(s.ctx, id, false)

	assert.True(s.T(), errors.Is(err, errors.CodeRecipeNotFound))
}

func (s *RecipeServiceTestSuite) TestResolverLoad_BatchesAndDedupes() {
	r1 := testutils.NewRecipeBuilder().WithItem(s.beef, 100).Build()
	r2 := testutils.NewRecipeBuilder().WithItem(s.beef, 50).WithItem(s.noodle, 100).Build()
	missing := uuid.New()

	s.recipes.On("GetRecipes", mock.Anything, []uuid.UUID{r1.ID(), r2.ID(), missing}).
		Return([]*recipe.Recipe{r1, r2}, nil).Once()
	s.catalog.On("GetIngredients", mock.Anything, []uuid.UUID{s.beef.ID(), s.noodle.ID()}).
		Return([]*ingredient.Ingredient{s.beef, s.noodle}, nil).Once()

	comps, err := s.resolver.Load(s.ctx, []uuid.UUID{r1.ID(), r2.ID(), r1.ID(), missing, r2.ID()})

	require.NoError(s.T(), err)
	assert.Len(s.T(), comps.Recipes, 2)
	c1, ok := comps.Lookup(r1.ID())
	require.True(s.T(), ok)
	assert.InDelta(s.T(), 250.0, c1.Totals.Calories, 1e-9)
	_, ok = comps.Lookup(missing)
	assert.False(s.T(), ok)
}

func (s *RecipeServiceTestSuite) TestResolverLoad_Empty() {
	comps, err := s.resolver.Load(s.ctx, nil)

	require.NoError(s.T(), err)
	assert.Empty(s.T(), comps.Recipes)
	assert.Equal(s.T(), 0, comps.Catalog.Len())
}

func TestRecipeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceTestSuite))
}
