// Package mealplan holds the per-user, per-date plan of recipes by slot.
package mealplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/shared"
)

// Slot is a meal position within a day
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
)

// Slots lists every slot in display order
var Slots = []Slot{SlotBreakfast, SlotLunch, SlotDinner}

// ParseSlot validates a slot name
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotBreakfast, SlotLunch, SlotDinner:
		return Slot(s), nil
	}
	return "", ErrInvalidSlot
}

// MealPlan is the recipe schedule of one user for one date. Version is the
// optimistic concurrency token and increases on every persisted change.
type MealPlan struct {
	shared.AggregateRoot

	id      uuid.UUID
	userID  uuid.UUID
	date    shared.Date
	version int
	slots   map[Slot][]uuid.UUID

	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty plan
func New(userID uuid.UUID, date shared.Date) (*MealPlan, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if date.IsZero() {
		return nil, ErrMissingDate
	}
	now := time.Now()
	return &MealPlan{
		id:        uuid.New(),
		userID:    userID,
		date:      date,
		version:   1,
		slots:     make(map[Slot][]uuid.UUID, len(Slots)),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a plan from storage
func Reconstruct(id, userID uuid.UUID, date shared.Date, version int, slots map[Slot][]uuid.UUID, createdAt, updatedAt time.Time) *MealPlan {
	p := &MealPlan{
		id:        id,
		userID:    userID,
		date:      date,
		version:   version,
		slots:     make(map[Slot][]uuid.UUID, len(Slots)),
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
	for slot, ids := range slots {
		if len(ids) > 0 {
			p.slots[slot] = append([]uuid.UUID(nil), ids...)
		}
	}
	return p
}

func (p *MealPlan) ID() uuid.UUID        { return p.id }
func (p *MealPlan) UserID() uuid.UUID    { return p.userID }
func (p *MealPlan) Date() shared.Date    { return p.date }
func (p *MealPlan) Version() int         { return p.version }
func (p *MealPlan) CreatedAt() time.Time { return p.createdAt }
func (p *MealPlan) UpdatedAt() time.Time { return p.updatedAt }

// Slot returns a copy of the recipe ids in slot, in order
func (p *MealPlan) Slot(slot Slot) []uuid.UUID {
	return append([]uuid.UUID(nil), p.slots[slot]...)
}

// AllSlots returns a copy of every non-empty slot
func (p *MealPlan) AllSlots() map[Slot][]uuid.UUID {
	out := make(map[Slot][]uuid.UUID, len(p.slots))
	for slot, ids := range p.slots {
		if len(ids) > 0 {
			out[slot] = append([]uuid.UUID(nil), ids...)
		}
	}
	return out
}

// RecipeIDs returns every recipe occurrence across slots in slot order.
// A recipe scheduled twice appears twice.
func (p *MealPlan) RecipeIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, slot := range Slots {
		ids = append(ids, p.slots[slot]...)
	}
	return ids
}

// IsEmpty reports whether no slot holds a recipe
func (p *MealPlan) IsEmpty() bool {
	for _, ids := range p.slots {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// SetSlot replaces the slot contents. Duplicates are kept as given.
func (p *MealPlan) SetSlot(slot Slot, ids []uuid.UUID) (bool, error) {
	if _, err := ParseSlot(string(slot)); err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == uuid.Nil {
			return false, ErrMissingRecipe
		}
	}
	if equalIDs(p.slots[slot], ids) {
		return false, nil
	}
	p.apply(slot, append([]uuid.UUID(nil), ids...), OpSet)
	return true, nil
}

// AddToSlot appends recipeID unless it is already present. Only recipeID is
// checked; duplicates of other recipes placed by SetSlot are left as they are.
func (p *MealPlan) AddToSlot(slot Slot, recipeID uuid.UUID) (bool, error) {
	if err := validate(slot, recipeID); err != nil {
		return false, err
	}
	current := p.slots[slot]
	if indexOf(current, recipeID) >= 0 {
		return false, nil
	}
	next := append(append([]uuid.UUID(nil), current...), recipeID)
	p.apply(slot, next, OpAdd)
	return true, nil
}

// RemoveFromSlot drops every occurrence of recipeID
func (p *MealPlan) RemoveFromSlot(slot Slot, recipeID uuid.UUID) (bool, error) {
	if err := validate(slot, recipeID); err != nil {
		return false, err
	}
	current := p.slots[slot]
	next := make([]uuid.UUID, 0, len(current))
	for _, id := range current {
		if id != recipeID {
			next = append(next, id)
		}
	}
	if len(next) == len(current) {
		return false, nil
	}
	p.apply(slot, next, OpRemove)
	return true, nil
}

// ReplaceResult describes what ReplaceInSlot did
type ReplaceResult struct {
	Changed bool
	// Fallback is set when oldID was absent and newID was added instead
	Fallback bool
}

// ReplaceInSlot puts newID wherever oldID was. If oldID is absent it behaves
// like AddToSlot(newID). newID never ends up in the slot twice; the first
// position wins. Duplicates of other recipes placed by SetSlot are kept.
func (p *MealPlan) ReplaceInSlot(slot Slot, oldID, newID uuid.UUID) (ReplaceResult, error) {
	if err := validate(slot, oldID); err != nil {
		return ReplaceResult{}, err
	}
	if newID == uuid.Nil {
		return ReplaceResult{}, ErrMissingRecipe
	}

	current := p.slots[slot]
	if indexOf(current, oldID) < 0 {
		changed, err := p.AddToSlot(slot, newID)
		return ReplaceResult{Changed: changed, Fallback: true}, err
	}

	next := make([]uuid.UUID, 0, len(current))
	seenNew := false
	for _, id := range current {
		if id == oldID {
			id = newID
		}
		if id == newID {
			if seenNew {
				continue
			}
			seenNew = true
		}
		next = append(next, id)
	}
	if equalIDs(current, next) {
		return ReplaceResult{}, nil
	}
	p.apply(slot, next, OpReplace)
	return ReplaceResult{Changed: true}, nil
}

// MarkPersisted records the version assigned by storage
func (p *MealPlan) MarkPersisted(version int, at time.Time) {
	p.version = version
	p.updatedAt = at
}

func (p *MealPlan) apply(slot Slot, next []uuid.UUID, op Operation) {
	if len(next) == 0 {
		delete(p.slots, slot)
	} else {
		p.slots[slot] = next
	}
	p.updatedAt = time.Now()
	p.AddEvent(SlotChangedEvent{
		MealPlanID: p.id,
		UserID:     p.userID,
		Date:       p.date,
		Slot:       slot,
		Operation:  op,
		RecipeIDs:  append([]uuid.UUID(nil), next...),
		ChangedAt:  p.updatedAt,
	})
}

func validate(slot Slot, recipeID uuid.UUID) error {
	if _, err := ParseSlot(string(slot)); err != nil {
		return err
	}
	if recipeID == uuid.Nil {
		return ErrMissingRecipe
	}
	return nil
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func equalIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
