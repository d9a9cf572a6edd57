package recipe

import (
	"time"

	"github.com/google/uuid"
)

// RecipeCreatedEvent is raised when a new recipe is created
type RecipeCreatedEvent struct {
	RecipeID  uuid.UUID
	Name      string
	CreatedAt time.Time
}

func (e RecipeCreatedEvent) EventName() string {
	return "recipe.created"
}

func (e RecipeCreatedEvent) OccurredAt() time.Time {
	return e.CreatedAt
}

// RecipeItemsChangedEvent is raised when the ingredient list or name changes
type RecipeItemsChangedEvent struct {
	RecipeID  uuid.UUID
	ItemCount int
	UpdatedAt time.Time
}

func (e RecipeItemsChangedEvent) EventName() string {
	return "recipe.items.changed"
}

func (e RecipeItemsChangedEvent) OccurredAt() time.Time {
	return e.UpdatedAt
}
