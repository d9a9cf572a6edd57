// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/recipe"
	gormModels "github.com/nutriplan/engine/internal/infrastructure/persistence/gorm"
)

// SetupDatabase opens the SQLite database at dbPath and migrates the schema.
// An empty path opens a private in-memory database.
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// In-memory databases live per connection
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Seed identifiers are fixed so local requests can reference them
const (
	SeedBeefID   = "6f1c1e64-3f0a-4a5e-9d1b-2a4a51c0b001"
	SeedNoodleID = "6f1c1e64-3f0a-4a5e-9d1b-2a4a51c0b002"
	SeedEggID    = "6f1c1e64-3f0a-4a5e-9d1b-2a4a51c0b003"
	SeedRiceID   = "6f1c1e64-3f0a-4a5e-9d1b-2a4a51c0b004"

	SeedBeefNoodlesID = "0b5d8f7a-1c44-4e2b-8a55-7e1f5c9d0001"
	SeedEggRiceID     = "0b5d8f7a-1c44-4e2b-8a55-7e1f5c9d0002"
)

// SeedDatabase populates an empty catalog with a few ingredients and recipes
func SeedDatabase(db *gorm.DB) error {
	// Check if data already exists
	var count int64
	if err := db.Model(&gormModels.IngredientModel{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count ingredients: %w", err)
	}
	if count > 0 {
		return nil // Already seeded
	}

	now := time.Now().UTC()
	priced := func(v float64) *ingredient.Price {
		return &ingredient.Price{Amount: v, Currency: "USD", UpdatedAt: now}
	}
	f := func(v float64) *float64 { return &v }

	demoIngredients := []*ingredient.Ingredient{
		ingredient.Reconstruct(uuid.MustParse(SeedBeefID), "Beef", ingredient.UnitGram,
			ingredient.Nutrients{Calories: f(250), Protein: f(26), Fat: f(15), Carbs: f(0)},
			priced(0.012), now, now),
		ingredient.Reconstruct(uuid.MustParse(SeedNoodleID), "Noodles", ingredient.UnitGram,
			ingredient.Nutrients{Calories: f(110), Protein: f(4), Fat: f(1), Carbs: f(25)},
			priced(0.003), now, now),
		ingredient.Reconstruct(uuid.MustParse(SeedEggID), "Egg", ingredient.UnitGram,
			ingredient.Nutrients{Calories: f(143), Protein: f(12.6), Fat: f(9.5), Carbs: f(0.7)},
			nil, now, now),
		ingredient.Reconstruct(uuid.MustParse(SeedRiceID), "Rice", ingredient.UnitGram,
			ingredient.Nutrients{Calories: f(130), Protein: f(2.7), Fat: f(0.3), Carbs: f(28)},
			priced(0.004), now, now),
	}

	displayUnits := map[string]map[string]float64{
		SeedEggID:  {"piece": 50},
		SeedRiceID: {"cup": 185},
	}
	for _, ing := range demoIngredients {
		for unit, factor := range displayUnits[ing.ID().String()] {
			if err := ing.SetDisplayUnit(unit, factor); err != nil {
				return fmt.Errorf("invalid demo display unit: %w", err)
			}
		}
	}

	demoRecipes := []*recipe.Recipe{
		recipe.Reconstruct(uuid.MustParse(SeedBeefNoodlesID), "Beef noodles", 1, []recipe.RecipeItem{
			{IngredientID: uuid.MustParse(SeedBeefID), Amount: 200},
			{IngredientID: uuid.MustParse(SeedNoodleID), Amount: 150},
		}, now, now),
		recipe.Reconstruct(uuid.MustParse(SeedEggRiceID), "Egg fried rice", 1, []recipe.RecipeItem{
			{IngredientID: uuid.MustParse(SeedRiceID), Amount: 100, UnitOverride: "cup"},
			{IngredientID: uuid.MustParse(SeedEggID), Amount: 50, UnitOverride: "piece"},
		}, now, now),
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, ing := range demoIngredients {
			if err := tx.Create(gormModels.IngredientToModel(ing)).Error; err != nil {
				return fmt.Errorf("failed to create demo ingredient: %w", err)
			}
		}
		for _, r := range demoRecipes {
			if err := tx.Create(gormModels.RecipeToModel(r)).Error; err != nil {
				return fmt.Errorf("failed to create demo recipe: %w", err)
			}
		}
		return nil
	})
}
