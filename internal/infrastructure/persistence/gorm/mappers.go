// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// IngredientToModel converts a domain ingredient to a GORM model
func IngredientToModel(i *ingredient.Ingredient) *IngredientModel {
	n := i.Nutrients()
	model := &IngredientModel{
		ID:        i.ID(),
		Name:      i.Name(),
		Unit:      string(i.Unit()),
		Calories:  n.Calories,
		Protein:   n.Protein,
		Fat:       n.Fat,
		Carbs:     n.Carbs,
		Fiber:     n.Fiber,
		Sugar:     n.Sugar,
		Sodium:    n.Sodium,
		CreatedAt: i.CreatedAt(),
		UpdatedAt: i.UpdatedAt(),

		DisplayUnits: datatypes.NewJSONType(DisplayUnitsDocument(i.DisplayUnits())),
	}

	if p := i.Price(); p != nil {
		amount := p.Amount
		updated := p.UpdatedAt
		model.PriceAmount = &amount
		model.PriceCurrency = p.Currency
		model.PriceUpdatedAt = &updated
	}

	return model
}

// ModelToIngredient converts a GORM model to a domain ingredient
func ModelToIngredient(m *IngredientModel) *ingredient.Ingredient {
	nutrients := ingredient.Nutrients{
		Calories: m.Calories,
		Protein:  m.Protein,
		Fat:      m.Fat,
		Carbs:    m.Carbs,
		Fiber:    m.Fiber,
		Sugar:    m.Sugar,
		Sodium:   m.Sodium,
	}

	var price *ingredient.Price
	if m.PriceAmount != nil && m.PriceUpdatedAt != nil {
		price = &ingredient.Price{
			Amount:    *m.PriceAmount,
			Currency:  m.PriceCurrency,
			UpdatedAt: m.PriceUpdatedAt.UTC(),
		}
	}

	ing := ingredient.Reconstruct(m.ID, m.Name, ingredient.Unit(m.Unit), nutrients, price, m.CreatedAt, m.UpdatedAt)
	for unit, factor := range m.DisplayUnits.Data() {
		// stored factors were validated on write
		_ = ing.SetDisplayUnit(unit, factor)
	}
	return ing
}

// RecipeToModel converts a domain recipe to a GORM model with its items
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	items := r.Items()
	model := &RecipeModel{
		ID:        r.ID(),
		Name:      r.Name(),
		Version:   r.Version(),
		CreatedAt: r.CreatedAt(),
		UpdatedAt: r.UpdatedAt(),
		Items:     make([]RecipeItemModel, len(items)),
	}

	for i, item := range items {
		model.Items[i] = RecipeItemModel{
			RecipeID:     r.ID(),
			Position:     i,
			IngredientID: item.IngredientID,
			Amount:       item.Amount,
			UnitOverride: item.UnitOverride,
		}
	}

	return model
}

// ModelToRecipe converts a GORM model to a domain recipe. Items are
// returned in position order.
func ModelToRecipe(m *RecipeModel) *recipe.Recipe {
	rows := append([]RecipeItemModel(nil), m.Items...)
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position < rows[b].Position })

	items := make([]recipe.RecipeItem, len(rows))
	for i, row := range rows {
		items[i] = recipe.RecipeItem{
			IngredientID: row.IngredientID,
			Amount:       row.Amount,
			UnitOverride: row.UnitOverride,
		}
	}

	return recipe.Reconstruct(m.ID, m.Name, m.Version, items, m.CreatedAt, m.UpdatedAt)
}

// MealPlanToModel converts a domain meal plan to a GORM model
func MealPlanToModel(p *mealplan.MealPlan) *MealPlanModel {
	return &MealPlanModel{
		ID:        p.ID(),
		UserID:    p.UserID(),
		Date:      p.Date().String(),
		Version:   p.Version(),
		Slots:     datatypes.NewJSONType(slotsToDocument(p.AllSlots())),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

// ModelToMealPlan converts a GORM model to a domain meal plan
func ModelToMealPlan(m *MealPlanModel) (*mealplan.MealPlan, error) {
	date, err := shared.ParseDate(m.Date)
	if err != nil {
		return nil, fmt.Errorf("meal plan %s: %w", m.ID, err)
	}

	doc := m.Slots.Data()
	slots := make(map[mealplan.Slot][]uuid.UUID, len(doc))
	for name, ids := range doc {
		slot, err := mealplan.ParseSlot(name)
		if err != nil {
			return nil, fmt.Errorf("meal plan %s: %w", m.ID, err)
		}
		slots[slot] = ids
	}

	return mealplan.Reconstruct(m.ID, m.UserID, date, m.Version, slots, m.CreatedAt, m.UpdatedAt), nil
}

func slotsToDocument(slots map[mealplan.Slot][]uuid.UUID) SlotsDocument {
	doc := make(SlotsDocument, len(slots))
	for slot, ids := range slots {
		if len(ids) > 0 {
			doc[string(slot)] = ids
		}
	}
	return doc
}

// FoodLogToModel converts a domain log entry to a GORM model
func FoodLogToModel(e *foodlog.Entry) *FoodLogModel {
	model := &FoodLogModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Date:      e.Date.String(),
		MealType:  string(e.MealType),
		RecipeID:  e.RecipeID,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}

	if m := e.Macros; m != nil {
		calories, protein, fat, carbs := m.Calories, m.Protein, m.Fat, m.Carbs
		model.Calories = &calories
		model.Protein = &protein
		model.Fat = &fat
		model.Carbs = &carbs
	}

	return model
}

// ModelToFoodLog converts a GORM model to a domain log entry
func ModelToFoodLog(m *FoodLogModel) (*foodlog.Entry, error) {
	date, err := shared.ParseDate(m.Date)
	if err != nil {
		return nil, fmt.Errorf("food log %s: %w", m.ID, err)
	}

	entry := &foodlog.Entry{
		ID:        m.ID,
		UserID:    m.UserID,
		Date:      date,
		MealType:  foodlog.MealType(m.MealType),
		RecipeID:  m.RecipeID,
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
	}

	if m.Calories != nil {
		entry.Macros = &nutrition.Macros{
			Calories: *m.Calories,
			Protein:  valueOrZero(m.Protein),
			Fat:      valueOrZero(m.Fat),
			Carbs:    valueOrZero(m.Carbs),
		}
	}

	return entry, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
