// Package recipe contains recipes and the rules that derive their nutrition
// from ingredient composition. Nutrition is never stored on a recipe.
package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/shared"
)

// Recipe is an ordered list of ingredient amounts
type Recipe struct {
	shared.AggregateRoot

	id      uuid.UUID
	version int

	name  string
	items []RecipeItem

	createdAt time.Time
	updatedAt time.Time
}

// NewRecipe creates an empty recipe
func NewRecipe(name string) (*Recipe, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	now := time.Now()
	r := &Recipe{
		id:        uuid.New(),
		version:   1,
		name:      strings.TrimSpace(name),
		createdAt: now,
		updatedAt: now,
	}

	r.AddEvent(RecipeCreatedEvent{
		RecipeID:  r.id,
		Name:      r.name,
		CreatedAt: now,
	})

	return r, nil
}

// Reconstruct rebuilds a recipe from storage
func Reconstruct(id uuid.UUID, name string, version int, items []RecipeItem, createdAt, updatedAt time.Time) *Recipe {
	copied := make([]RecipeItem, len(items))
	copy(copied, items)
	return &Recipe{
		id:        id,
		version:   version,
		name:      name,
		items:     copied,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the recipe's unique identifier
func (r *Recipe) ID() uuid.UUID {
	return r.id
}

// Name returns the display name
func (r *Recipe) Name() string {
	return r.name
}

// Version returns the optimistic locking version
func (r *Recipe) Version() int {
	return r.version
}

// CreatedAt returns the creation timestamp
func (r *Recipe) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns the last modification timestamp
func (r *Recipe) UpdatedAt() time.Time {
	return r.updatedAt
}

// Items returns a copy of the ingredient lines in order
func (r *Recipe) Items() []RecipeItem {
	items := make([]RecipeItem, len(r.items))
	copy(items, r.items)
	return items
}

// IngredientIDs returns the distinct ingredient ids in first-seen order
func (r *Recipe) IngredientIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(r.items))
	ids := make([]uuid.UUID, 0, len(r.items))
	for _, it := range r.items {
		if _, ok := seen[it.IngredientID]; ok {
			continue
		}
		seen[it.IngredientID] = struct{}{}
		ids = append(ids, it.IngredientID)
	}
	return ids
}

// AddItem appends an ingredient line
func (r *Recipe) AddItem(ingredientID uuid.UUID, amount float64, unitOverride string) error {
	item, err := NewRecipeItem(ingredientID, amount, unitOverride)
	if err != nil {
		return err
	}
	r.items = append(r.items, item)
	r.touch()
	return nil
}

// ReplaceItems swaps the full ingredient list
func (r *Recipe) ReplaceItems(items []RecipeItem) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	r.items = make([]RecipeItem, len(items))
	copy(r.items, items)
	r.touch()
	return nil
}

// Rename changes the display name
func (r *Recipe) Rename(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	r.name = strings.TrimSpace(name)
	r.touch()
	return nil
}

func (r *Recipe) touch() {
	r.updatedAt = time.Now()
	r.version++
	r.AddEvent(RecipeItemsChangedEvent{
		RecipeID:  r.id,
		ItemCount: len(r.items),
		UpdatedAt: r.updatedAt,
	})
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}
