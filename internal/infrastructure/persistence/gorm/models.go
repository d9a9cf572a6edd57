// Package gorm provides GORM model definitions for the application
package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IngredientModel represents the GORM model for catalog ingredients.
// Nutrient columns are nullable; NULL means unknown.
type IngredientModel struct {
	ID   uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name string    `gorm:"type:varchar(200);not null;index"`
	Unit string    `gorm:"type:varchar(16);not null"`

	// Nutrition per 100 canonical units
	Calories *float64
	Protein  *float64
	Fat      *float64
	Carbs    *float64
	Fiber    *float64
	Sugar    *float64
	Sodium   *float64

	// Price per canonical unit
	PriceAmount    *float64
	PriceCurrency  string     `gorm:"type:varchar(3)"`
	PriceUpdatedAt *time.Time `gorm:"index"`

	// Canonical units per display unit, e.g. {"cup": 240}
	DisplayUnits datatypes.JSONType[DisplayUnitsDocument] `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	// Relationships
	Items []RecipeItemModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// RecipeItemModel is one ingredient line of a recipe. Position keeps the
// authored order.
type RecipeItemModel struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	RecipeID     uuid.UUID `gorm:"type:char(36);not null;index"`
	Position     int       `gorm:"not null"`
	IngredientID uuid.UUID `gorm:"type:char(36);not null;index"`
	Amount       float64   `gorm:"not null"`
	UnitOverride string    `gorm:"type:varchar(32)"`
}

// DisplayUnitsDocument is the JSON form of an ingredient's display units
type DisplayUnitsDocument map[string]float64

// SlotsDocument is the JSON form of a meal plan's slots
type SlotsDocument map[string][]uuid.UUID

// MealPlanModel represents the GORM model for meal plans. (user_id, date)
// is unique; version is the optimistic concurrency token.
type MealPlanModel struct {
	ID        uuid.UUID                         `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID                         `gorm:"type:char(36);not null;uniqueIndex:idx_meal_plans_user_date"`
	Date      string                            `gorm:"type:varchar(10);not null;uniqueIndex:idx_meal_plans_user_date"`
	Version   int                               `gorm:"not null;default:1"`
	Slots     datatypes.JSONType[SlotsDocument] `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FoodLogModel represents the GORM model for food log entries. The macro
// columns are all NULL when the entry relies on its recipe.
type FoodLogModel struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID  `gorm:"type:char(36);not null;index:idx_food_logs_user_date"`
	Date      string     `gorm:"type:varchar(10);not null;index:idx_food_logs_user_date"`
	MealType  string     `gorm:"type:varchar(16);not null"`
	RecipeID  *uuid.UUID `gorm:"type:char(36);index"`
	Calories  *float64
	Protein   *float64
	Fat       *float64
	Carbs     *float64
	Note      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// BeforeCreate hooks
func (i *IngredientModel) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (m *MealPlanModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (f *FoodLogModel) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Table names
func (IngredientModel) TableName() string {
	return "ingredients"
}

func (RecipeModel) TableName() string {
	return "recipes"
}

func (RecipeItemModel) TableName() string {
	return "recipe_items"
}

func (MealPlanModel) TableName() string {
	return "meal_plans"
}

func (FoodLogModel) TableName() string {
	return "food_logs"
}

// AllModels lists every model for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&IngredientModel{},
		&RecipeModel{},
		&RecipeItemModel{},
		&MealPlanModel{},
		&FoodLogModel{},
	}
}
