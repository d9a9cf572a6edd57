package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// MealPlanRepository implements meal plan persistence using GORM. Writes
// are guarded by the version column.
type MealPlanRepository struct {
	db *gorm.DB
}

// NewMealPlanRepository creates a new meal plan repository
func NewMealPlanRepository(db *gorm.DB) outbound.MealPlanRepository {
	return &MealPlanRepository{db: db}
}

// FindByDate finds the plan of one user for one date
func (r *MealPlanRepository) FindByDate(ctx context.Context, userID uuid.UUID, date shared.Date) (*mealplan.MealPlan, error) {
	var model MealPlanModel

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date.String()).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, mealplan.ErrNotFound
		}
		return nil, result.Error
	}

	return ModelToMealPlan(&model)
}

// FindByDateRange returns the user's plans in rng ordered by date
func (r *MealPlanRepository) FindByDateRange(ctx context.Context, userID uuid.UUID, rng shared.DateRange) ([]*mealplan.MealPlan, error) {
	var models []MealPlanModel

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, rng.Start.String(), rng.End.String()).
		Order("date").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	plans := make([]*mealplan.MealPlan, 0, len(models))
	for i := range models {
		p, err := ModelToMealPlan(&models[i])
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// Ensure inserts an empty plan unless one exists and returns the stored plan
func (r *MealPlanRepository) Ensure(ctx context.Context, userID uuid.UUID, date shared.Date) (*mealplan.MealPlan, error) {
	fresh, err := mealplan.New(userID, date)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(MealPlanToModel(fresh))
	if result.Error != nil {
		return nil, result.Error
	}

	return r.FindByDate(ctx, userID, date)
}

// UpdateSlots writes the slots with a compare-and-swap on version
func (r *MealPlanRepository) UpdateSlots(ctx context.Context, plan *mealplan.MealPlan, expectedVersion int) error {
	now := time.Now()
	next := expectedVersion + 1

	result := r.db.WithContext(ctx).Model(&MealPlanModel{}).
		Where("id = ? AND version = ?", plan.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"slots":      datatypes.NewJSONType(slotsToDocument(plan.AllSlots())),
			"version":    next,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return mealplan.ErrVersionConflict
	}

	plan.MarkPersisted(next, now)
	return nil
}
