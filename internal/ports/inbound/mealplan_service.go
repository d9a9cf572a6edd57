package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// MealPlanService owns the per-date slot lists. Every mutation is guarded by
// the plan version; a lost race surfaces as a conflict the caller retries.
type MealPlanService interface {
	GetPlan(ctx context.Context, userID uuid.UUID, date shared.Date) (*MealPlanDTO, error)
	ListPlans(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*MealPlanDTO, error)
	Ensure(ctx context.Context, userID uuid.UUID, date shared.Date) (*MealPlanDTO, error)

	SetSlot(ctx context.Context, cmd SetSlotCommand) (*SlotMutationResult, error)
	AddToSlot(ctx context.Context, cmd SlotRecipeCommand) (*SlotMutationResult, error)
	RemoveFromSlot(ctx context.Context, cmd SlotRecipeCommand) (*SlotMutationResult, error)
	ReplaceInSlot(ctx context.Context, cmd ReplaceInSlotCommand) (*SlotMutationResult, error)
}

// SlotTarget identifies a slot. ExpectedVersion, when set, must match the
// stored plan version or the call fails with a conflict.
type SlotTarget struct {
	UserID          uuid.UUID     `validate:"required"`
	Date            shared.Date
	Slot            mealplan.Slot `validate:"required,oneof=breakfast lunch dinner"`
	ExpectedVersion *int          `validate:"omitempty,min=1"`
}

// SetSlotCommand replaces a slot's list
type SetSlotCommand struct {
	SlotTarget
	RecipeIDs []uuid.UUID `validate:"dive,required"`
}

// SlotRecipeCommand adds or removes one recipe
type SlotRecipeCommand struct {
	SlotTarget
	RecipeID uuid.UUID `validate:"required"`
}

// ReplaceInSlotCommand swaps one recipe for another
type ReplaceInSlotCommand struct {
	SlotTarget
	OldRecipeID uuid.UUID `validate:"required"`
	NewRecipeID uuid.UUID `validate:"required"`
}

// MealPlanDTO is the API view of a plan
type MealPlanDTO struct {
	ID        uuid.UUID                     `json:"id"`
	Date      shared.Date                   `json:"date"`
	Version   int                           `json:"version"`
	Slots     map[mealplan.Slot][]uuid.UUID `json:"slots"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// SlotMutationResult reports the plan after a mutation
type SlotMutationResult struct {
	Plan    *MealPlanDTO `json:"plan"`
	Changed bool         `json:"changed"`
	// Fallback is set when a replace found no old recipe and added instead
	Fallback bool `json:"fallback,omitempty"`
}

// ToMealPlanDTO converts a domain plan, always listing all three slots
func ToMealPlanDTO(p *mealplan.MealPlan) *MealPlanDTO {
	slots := make(map[mealplan.Slot][]uuid.UUID, len(mealplan.Slots))
	for _, s := range mealplan.Slots {
		ids := p.Slot(s)
		if ids == nil {
			ids = []uuid.UUID{}
		}
		slots[s] = ids
	}
	return &MealPlanDTO{
		ID:        p.ID(),
		Date:      p.Date(),
		Version:   p.Version(),
		Slots:     slots,
		UpdatedAt: p.UpdatedAt(),
	}
}
