// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// IngredientBuilder provides a fluent interface for building test ingredients
type IngredientBuilder struct {
	name      string
	unit      ingredient.Unit
	nutrients ingredient.Nutrients
	price     *ingredient.Price
	display   map[string]float64
}

// NewIngredientBuilder creates a builder with random but valid values
func NewIngredientBuilder() *IngredientBuilder {
	faker := gofakeit.New(time.Now().UnixNano())

	return &IngredientBuilder{
		name: faker.Vegetable() + " " + faker.LetterN(4),
		unit: ingredient.UnitGram,
		nutrients: ingredient.Nutrients{
			Calories: Float(faker.Float64Range(10, 600)),
			Protein:  Float(faker.Float64Range(0, 40)),
			Fat:      Float(faker.Float64Range(0, 50)),
			Carbs:    Float(faker.Float64Range(0, 80)),
		},
	}
}

// WithName sets the ingredient name
func (b *IngredientBuilder) WithName(name string) *IngredientBuilder {
	b.name = name
	return b
}

// WithUnit sets the canonical unit
func (b *IngredientBuilder) WithUnit(unit ingredient.Unit) *IngredientBuilder {
	b.unit = unit
	return b
}

// WithMacros sets kcal, protein, fat and carbs per 100 units
func (b *IngredientBuilder) WithMacros(kcal, protein, fat, carbs float64) *IngredientBuilder {
	b.nutrients.Calories = Float(kcal)
	b.nutrients.Protein = Float(protein)
	b.nutrients.Fat = Float(fat)
	b.nutrients.Carbs = Float(carbs)
	return b
}

// WithNutrients replaces every nutrient value
func (b *IngredientBuilder) WithNutrients(n ingredient.Nutrients) *IngredientBuilder {
	b.nutrients = n
	return b
}

// WithPrice sets the unit price
func (b *IngredientBuilder) WithPrice(amount float64, currency string, updatedAt time.Time) *IngredientBuilder {
	b.price = &ingredient.Price{Amount: amount, Currency: currency, UpdatedAt: updatedAt}
	return b
}

// WithDisplayUnit registers factor canonical units per displayUnit
func (b *IngredientBuilder) WithDisplayUnit(displayUnit string, factor float64) *IngredientBuilder {
	if b.display == nil {
		b.display = make(map[string]float64)
	}
	b.display[displayUnit] = factor
	return b
}

// Build creates the ingredient, panicking on invalid builder state
func (b *IngredientBuilder) Build() *ingredient.Ingredient {
	ing, err := ingredient.NewIngredient(b.name, b.unit, b.nutrients)
	if err != nil {
		panic(err)
	}
	if b.price != nil {
		if err := ing.SetPrice(*b.price); err != nil {
			panic(err)
		}
	}
	for unit, factor := range b.display {
		if err := ing.SetDisplayUnit(unit, factor); err != nil {
			panic(err)
		}
	}
	return ing
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	name  string
	items []recipe.RecipeItem
}

// NewRecipeBuilder creates a new recipe builder with default values
func NewRecipeBuilder() *RecipeBuilder {
	faker := gofakeit.New(time.Now().UnixNano())
	return &RecipeBuilder{name: faker.Dinner()}
}

// WithName sets the recipe name
func (b *RecipeBuilder) WithName(name string) *RecipeBuilder {
	b.name = name
	return b
}

// WithItem appends an ingredient line
func (b *RecipeBuilder) WithItem(ing *ingredient.Ingredient, amount float64) *RecipeBuilder {
	return b.WithItemID(ing.ID(), amount)
}

// WithItemID appends a line referencing an arbitrary ingredient id
func (b *RecipeBuilder) WithItemID(id uuid.UUID, amount float64) *RecipeBuilder {
	b.items = append(b.items, recipe.RecipeItem{IngredientID: id, Amount: amount})
	return b
}

// Build creates the recipe, panicking on invalid builder state
func (b *RecipeBuilder) Build() *recipe.Recipe {
	r, err := recipe.NewRecipe(b.name)
	if err != nil {
		panic(err)
	}
	if err := r.ReplaceItems(b.items); err != nil {
		panic(err)
	}
	r.Events()
	return r
}

// MealPlanBuilder builds plans with fixed slot contents
type MealPlanBuilder struct {
	userID  uuid.UUID
	date    shared.Date
	version int
	slots   map[mealplan.Slot][]uuid.UUID
}

// NewMealPlanBuilder starts a plan for userID on date
func NewMealPlanBuilder(userID uuid.UUID, date string) *MealPlanBuilder {
	return &MealPlanBuilder{
		userID:  userID,
		date:    shared.MustParseDate(date),
		version: 1,
		slots:   make(map[mealplan.Slot][]uuid.UUID),
	}
}

// WithSlot sets a slot's recipe ids
func (b *MealPlanBuilder) WithSlot(slot mealplan.Slot, ids ...uuid.UUID) *MealPlanBuilder {
	b.slots[slot] = ids
	return b
}

// WithVersion sets the stored version
func (b *MealPlanBuilder) WithVersion(v int) *MealPlanBuilder {
	b.version = v
	return b
}

// Build creates the plan
func (b *MealPlanBuilder) Build() *mealplan.MealPlan {
	now := time.Now()
	return mealplan.Reconstruct(uuid.New(), b.userID, b.date, b.version, b.slots, now, now)
}

// FoodLogWithMacros creates a log entry with explicit macros
func FoodLogWithMacros(userID uuid.UUID, date string, m nutrition.Macros) *foodlog.Entry {
	e, err := foodlog.NewEntry(userID, shared.MustParseDate(date), foodlog.MealSnack, nil, &m, gofakeit.Sentence(3))
	if err != nil {
		panic(err)
	}
	return e
}

// FoodLogWithRecipe creates a log entry referencing a recipe
func FoodLogWithRecipe(userID uuid.UUID, date string, recipeID uuid.UUID) *foodlog.Entry {
	e, err := foodlog.NewEntry(userID, shared.MustParseDate(date), foodlog.MealDinner, &recipeID, nil, "")
	if err != nil {
		panic(err)
	}
	return e
}
