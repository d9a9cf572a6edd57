package mealplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/shared"
)

// Operation names the slot mutation that produced an event
type Operation string

const (
	OpSet     Operation = "set"
	OpAdd     Operation = "add"
	OpRemove  Operation = "remove"
	OpReplace Operation = "replace"
)

// SlotChangedEvent is raised when a slot's recipe list changes
type SlotChangedEvent struct {
	MealPlanID uuid.UUID   `json:"meal_plan_id"`
	UserID     uuid.UUID   `json:"user_id"`
	Date       shared.Date `json:"date"`
	Slot       Slot        `json:"slot"`
	Operation  Operation   `json:"operation"`
	RecipeIDs  []uuid.UUID `json:"recipe_ids"`
	Version    int         `json:"version"`
	ChangedAt  time.Time   `json:"changed_at"`
}

func (e SlotChangedEvent) EventName() string {
	return "mealplan.slot.changed"
}

func (e SlotChangedEvent) OccurredAt() time.Time {
	return e.ChangedAt
}
