package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/domain/shopping"
	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/http/handlers"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/test/testutils"
)

type HandlersTestSuite struct {
	suite.Suite
	plans     *testutils.MockMealPlanService
	nutrition *testutils.MockNutritionService
	foodLogs  *testutils.MockFoodLogService
	recipes   *testutils.MockRecipeNutritionService
	shopping  *testutils.MockShoppingService
	pricing   *testutils.MockPricingService
	router    chi.Router
	userID    uuid.UUID
}

func (s *HandlersTestSuite) SetupTest() {
	s.plans = new(testutils.MockMealPlanService)
	s.nutrition = new(testutils.MockNutritionService)
	s.foodLogs = new(testutils.MockFoodLogService)
	s.recipes = new(testutils.MockRecipeNutritionService)
	s.shopping = new(testutils.MockShoppingService)
	s.pricing = new(testutils.MockPricingService)
	s.userID = uuid.New()

	h := handlers.NewAPIHandlers(handlers.Services{
		Recipes:   s.recipes,
		MealPlans: s.plans,
		Nutrition: s.nutrition,
		FoodLogs:  s.foodLogs,
		Shopping:  s.shopping,
		Pricing:   s.pricing,
	}, zap.NewNop())

	mw := middleware.New(config.ServerConfig{}, nil, zap.NewNop())
	r := chi.NewRouter()
	r.Use(mw.Identity())
	h.Routes(r)
	s.router = r
}

func (s *HandlersTestSuite) TearDownTest() {
	s.plans.AssertExpectations(s.T())
	s.nutrition.AssertExpectations(s.T())
	s.foodLogs.AssertExpectations(s.T())
	s.recipes.AssertExpectations(s.T())
	s.shopping.AssertExpectations(s.T())
	s.pricing.AssertExpectations(s.T())
}

func (s *HandlersTestSuite) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.UserIDHeader, s.userID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersTestSuite) errorCode(rec *httptest.ResponseRecorder) errors.ErrorCode {
	var body errors.ErrorResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func (s *HandlersTestSuite) planDTO(version int) *inbound.MealPlanDTO {
	return &inbound.MealPlanDTO{
		ID:      uuid.New(),
		Date:    shared.MustParseDate("2024-05-01"),
		Version: version,
		Slots:   map[mealplan.Slot][]uuid.UUID{mealplan.SlotLunch: {}},
	}
}

func (s *HandlersTestSuite) TestAddToSlot_PassesIfMatchAndReturnsETag() {
	// Arrange
	recipeID := uuid.New()
	s.plans.On("AddToSlot", mock.Anything, mock.MatchedBy(func(cmd inbound.SlotRecipeCommand) bool {
		return cmd.UserID == s.userID &&
			cmd.Slot == mealplan.SlotLunch &&
			cmd.Date.String() == "2024-05-01" &&
			cmd.RecipeID == recipeID &&
			cmd.ExpectedVersion != nil && *cmd.ExpectedVersion == 3
	})).Return(&inbound.SlotMutationResult{Plan: s.planDTO(4), Changed: true}, nil)

	// Act
	rec := s.do(http.MethodPost, "/meal-plans/2024-05-01/slots/lunch/recipes",
		`{"recipe_id":"`+recipeID.String()+`"}`, "If-Match", `"3"`)

	// Assert
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), `"4"`, rec.Header().Get("ETag"))
	var body struct {
		Success bool                       `json:"success"`
		Data    inbound.SlotMutationResult `json:"data"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(s.T(), body.Success)
	assert.True(s.T(), body.Data.Changed)
	assert.Equal(s.T(), 4, body.Data.Plan.Version)
}

func (s *HandlersTestSuite) TestSetSlot_VersionConflict() {
	s.plans.On("SetSlot", mock.Anything, mock.Anything).
		Return(nil, errors.NewVersionConflictError(uuid.NewString(), 2))

	rec := s.do(http.MethodPut, "/meal-plans/2024-05-01/slots/dinner", `{"recipe_ids":[]}`, "If-Match", "2")

	assert.Equal(s.T(), http.StatusConflict, rec.Code)
	assert.Equal(s.T(), errors.CodeVersionConflict, s.errorCode(rec))
}

func (s *HandlersTestSuite) TestSetSlot_NullListClearsSlot() {
	s.plans.On("SetSlot", mock.Anything, mock.MatchedBy(func(cmd inbound.SetSlotCommand) bool {
		return cmd.RecipeIDs != nil && len(cmd.RecipeIDs) == 0 && cmd.ExpectedVersion == nil
	})).Return(&inbound.SlotMutationResult{Plan: s.planDTO(2), Changed: true}, nil)

	rec := s.do(http.MethodPut, "/meal-plans/2024-05-01/slots/dinner", `{"recipe_ids":null}`)

	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *HandlersTestSuite) TestReplaceAndRemove() {
	oldID, newID := uuid.New(), uuid.New()
	s.plans.On("ReplaceInSlot", mock.Anything, mock.MatchedBy(func(cmd inbound.ReplaceInSlotCommand) bool {
		return cmd.OldRecipeID == oldID && cmd.NewRecipeID == newID
	})).Return(&inbound.SlotMutationResult{Plan: s.planDTO(5), Changed: true, Fallback: true}, nil)
	s.plans.On("RemoveFromSlot", mock.Anything, mock.MatchedBy(func(cmd inbound.SlotRecipeCommand) bool {
		return cmd.RecipeID == newID && cmd.Slot == mealplan.SlotBreakfast
	})).Return(&inbound.SlotMutationResult{Plan: s.planDTO(6), Changed: true}, nil)

	replaced := s.do(http.MethodPut, "/meal-plans/2024-05-01/slots/breakfast/recipes/"+oldID.String(),
		`{"recipe_id":"`+newID.String()+`"}`)
	removed := s.do(http.MethodDelete, "/meal-plans/2024-05-01/slots/breakfast/recipes/"+newID.String(), "")

	assert.Equal(s.T(), http.StatusOK, replaced.Code)
	assert.Contains(s.T(), replaced.Body.String(), `"fallback":true`)
	assert.Equal(s.T(), http.StatusOK, removed.Code)
	assert.Equal(s.T(), `"6"`, removed.Header().Get("ETag"))
}

func (s *HandlersTestSuite) TestSlotRequests_BadInput() {
	cases := []struct {
		name   string
		method string
		target string
		body   string
		header []string
	}{
		{"unknown slot", http.MethodPut, "/meal-plans/2024-05-01/slots/brunch", `{"recipe_ids":[]}`, nil},
		{"bad date", http.MethodPut, "/meal-plans/2024-13-01/slots/lunch", `{"recipe_ids":[]}`, nil},
		{"bad if-match", http.MethodPut, "/meal-plans/2024-05-01/slots/lunch", `{"recipe_ids":[]}`, []string{"If-Match", "abc"}},
		{"unknown field", http.MethodPost, "/meal-plans/2024-05-01/slots/lunch/recipes", `{"recipe":"x"}`, nil},
		{"empty body", http.MethodPost, "/meal-plans/2024-05-01/slots/lunch/recipes", "", nil},
		{"bad recipe id", http.MethodDelete, "/meal-plans/2024-05-01/slots/lunch/recipes/nope", "", nil},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.do(tc.method, tc.target, tc.body, tc.header...)
			assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
		})
	}
}

func (s *HandlersTestSuite) TestMissingIdentity() {
	req := httptest.NewRequest(http.MethodGet, "/meal-plans/2024-05-01", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *HandlersTestSuite) TestGetMealPlan_NotFound() {
	s.plans.On("GetPlan", mock.Anything, s.userID, shared.MustParseDate("2024-05-01")).
		Return(nil, errors.NewMealPlanNotFoundError("2024-05-01"))

	rec := s.do(http.MethodGet, "/meal-plans/2024-05-01", "")

	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
	assert.Equal(s.T(), errors.CodeMealPlanNotFound, s.errorCode(rec))
}

func (s *HandlersTestSuite) TestEnsureAndList() {
	rng, err := shared.ParseDateRange("2024-05-01", "2024-05-07")
	require.NoError(s.T(), err)
	s.plans.On("Ensure", mock.Anything, s.userID, shared.MustParseDate("2024-05-01")).Return(s.planDTO(1), nil)
	s.plans.On("ListPlans", mock.Anything, s.userID, rng).Return([]*inbound.MealPlanDTO{s.planDTO(1)}, nil)

	ensured := s.do(http.MethodPost, "/meal-plans/2024-05-01", "")
	listed := s.do(http.MethodGet, "/meal-plans?start=2024-05-01&end=2024-05-07", "")
	missing := s.do(http.MethodGet, "/meal-plans?start=2024-05-01", "")

	assert.Equal(s.T(), http.StatusOK, ensured.Code)
	assert.Equal(s.T(), `"1"`, ensured.Header().Get("ETag"))
	assert.Equal(s.T(), http.StatusOK, listed.Code)
	assert.Equal(s.T(), http.StatusBadRequest, missing.Code)
}

func (s *HandlersTestSuite) TestNutritionAverage_Policy() {
	threeDays := mock.MatchedBy(func(d []shared.Date) bool { return len(d) == 3 })

	s.Run("configured default", func() {
		s.nutrition.On("WindowAverage", mock.Anything, s.userID, threeDays, (*nutrition.AveragePolicy)(nil)).
			Return(&nutrition.Average{Days: 3, CountedDays: 3}, nil).Once()

		rec := s.do(http.MethodGet, "/nutrition/average?start=2024-05-01&end=2024-05-03", "")
		assert.Equal(s.T(), http.StatusOK, rec.Code)
	})

	s.Run("exclude no data", func() {
		s.nutrition.On("WindowAverage", mock.Anything, s.userID, threeDays, &nutrition.AveragePolicy{ExcludeNoData: true}).
			Return(&nutrition.Average{Days: 3, CountedDays: 1}, nil).Once()

		rec := s.do(http.MethodGet, "/nutrition/average?start=2024-05-01&end=2024-05-03&exclude_no_data=true", "")
		assert.Equal(s.T(), http.StatusOK, rec.Code)
		assert.Contains(s.T(), rec.Body.String(), `"counted_days":1`)
	})

	s.Run("inverted range", func() {
		rec := s.do(http.MethodGet, "/nutrition/average?start=2024-05-03&end=2024-05-01", "")
		assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlersTestSuite) TestDailyAndWeekly() {
	date := shared.MustParseDate("2024-05-08")
	s.nutrition.On("DailyNutrition", mock.Anything, s.userID, date).
		Return(&nutrition.Daily{Date: date, Source: nutrition.SourcePlanned}, nil)
	s.nutrition.On("WeeklySummary", mock.Anything, s.userID, date).
		Return(&inbound.WeeklySummary{Range: shared.WeekOf(date)}, nil)

	daily := s.do(http.MethodGet, "/nutrition/daily/2024-05-08", "")
	weekly := s.do(http.MethodGet, "/nutrition/weekly/2024-05-08", "")

	assert.Equal(s.T(), http.StatusOK, daily.Code)
	assert.Contains(s.T(), daily.Body.String(), `"date":"2024-05-08"`)
	assert.Equal(s.T(), http.StatusOK, weekly.Code)
}

func (s *HandlersTestSuite) TestLogFood_UsesCallerIdentity() {
	entry := &foodlog.Entry{ID: uuid.New(), UserID: s.userID, Date: shared.MustParseDate("2024-05-02"), MealType: "lunch"}
	s.foodLogs.On("LogFood", mock.Anything, mock.MatchedBy(func(cmd inbound.LogFoodCommand) bool {
		return cmd.UserID == s.userID && cmd.MealType == "lunch" && cmd.Macros != nil && cmd.Macros.Calories == 500
	})).Return(entry, nil)
	s.foodLogs.On("DeleteLog", mock.Anything, s.userID, entry.ID).Return(nil)

	created := s.do(http.MethodPost, "/food-logs",
		`{"date":"2024-05-02","meal_type":"lunch","macros":{"calories":500,"protein":20,"fat":10,"carbs":60}}`)
	deleted := s.do(http.MethodDelete, "/food-logs/"+entry.ID.String(), "")

	assert.Equal(s.T(), http.StatusCreated, created.Code)
	assert.Equal(s.T(), http.StatusNoContent, deleted.Code)
}

func (s *HandlersTestSuite) TestRecipeEndpoints() {
	recipeID := uuid.New()
	s.recipes.On("RecipeNutrition", mock.Anything, recipeID, true).
		Return(nil, errors.NewIngredientNotFoundError(uuid.NewString()))
	s.recipes.On("RecipeNutrition", mock.Anything, recipeID, false).
		Return(&recipe.Composition{RecipeID: recipeID, Incomplete: true}, nil)
	s.recipes.On("CreateRecipe", mock.Anything, mock.MatchedBy(func(cmd inbound.CreateRecipeCommand) bool {
		return cmd.Name == "Porridge" && len(cmd.Items) == 1 && cmd.Items[0].Amount == 80
	})).Return(&inbound.RecipeDTO{ID: recipeID, Name: "Porridge", Version: 1}, nil)

	strict := s.do(http.MethodGet, "/recipes/"+recipeID.String()+"/nutrition?strict=true", "")
	lenient := s.do(http.MethodGet, "/recipes/"+recipeID.String()+"/nutrition", "")
	created := s.do(http.MethodPost, "/recipes",
		`{"name":"Porridge","items":[{"ingredient_id":"`+uuid.NewString()+`","amount":80}]}`)

	assert.Equal(s.T(), http.StatusNotFound, strict.Code)
	assert.Equal(s.T(), errors.CodeIngredientNotFound, s.errorCode(strict))
	assert.Equal(s.T(), http.StatusOK, lenient.Code)
	assert.Contains(s.T(), lenient.Body.String(), `"incomplete":true`)
	assert.Equal(s.T(), http.StatusCreated, created.Code)
	assert.True(s.T(), strings.HasSuffix(created.Header().Get("Location"), recipeID.String()+"/nutrition"))
}

func (s *HandlersTestSuite) TestShoppingList() {
	s.shopping.On("BuildList", mock.Anything, mock.MatchedBy(func(q inbound.BuildListQuery) bool {
		return q.UserID == s.userID && q.Servings == 4 && q.Mode == "saving" && q.Range.Len() == 7
	})).Return(&shopping.List{Servings: 4, Mode: shopping.ModeSaving, Items: []shopping.Item{}}, nil)

	ok := s.do(http.MethodGet, "/shopping-list?start=2024-05-06&end=2024-05-12&servings=4&mode=saving", "")
	bad := s.do(http.MethodGet, "/shopping-list?start=2024-05-06&end=2024-05-12&servings=four", "")

	assert.Equal(s.T(), http.StatusOK, ok.Code)
	assert.Contains(s.T(), ok.Body.String(), `"mode":"saving"`)
	assert.Equal(s.T(), http.StatusBadRequest, bad.Code)
}

func (s *HandlersTestSuite) TestShoppingSummary() {
	checkedID := uuid.New()
	s.shopping.On("Summarize", mock.Anything, map[uuid.UUID]bool{checkedID: true}).
		Return(shopping.Summary{ItemCount: 1, CheckedCount: 1})

	rec := s.do(http.MethodPost, "/shopping-list/summary",
		`{"items":[{"ingredient_id":"`+checkedID.String()+`","currency":"USD","estimated_cost":2}],"checked":["`+checkedID.String()+`"]}`)

	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), `"checked_count":1`)
}

func (s *HandlersTestSuite) TestPricing() {
	id := uuid.New()
	s.pricing.On("GetPriceInfo", mock.Anything, id).Return(&inbound.PriceInfoDTO{IngredientID: id, Freshness: pricing.Absent}, nil)
	s.pricing.On("UpdatePolicy", pricing.Policy{
		FreshFor:         48 * time.Hour,
		DefaultUnitPrice: 0.02,
		DefaultCurrency:  "EUR",
		UseStalePrices:   true,
	}).Return(nil).Once()
	s.pricing.On("Policy").Return(pricing.DefaultPolicy())

	price := s.do(http.MethodGet, "/prices/"+id.String(), "")
	policy := s.do(http.MethodGet, "/pricing/policy", "")
	updated := s.do(http.MethodPut, "/pricing/policy",
		`{"fresh_for":"48h","expire_after":"","default_unit_price":0.02,"default_currency":"EUR","use_stale_prices":true}`)
	invalid := s.do(http.MethodPut, "/pricing/policy", `{"fresh_for":"two days"}`)

	assert.Equal(s.T(), http.StatusOK, price.Code)
	assert.Contains(s.T(), price.Body.String(), `"freshness":"absent"`)
	assert.Equal(s.T(), http.StatusOK, policy.Code)
	assert.Contains(s.T(), policy.Body.String(), `"fresh_for":"`+pricing.DefaultPolicy().FreshFor.String()+`"`)
	assert.Equal(s.T(), http.StatusOK, updated.Code)
	assert.Equal(s.T(), http.StatusBadRequest, invalid.Code)
	assert.Equal(s.T(), errors.CodeValidationFailed, s.errorCode(invalid))
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
