// Package foodlog records what a user actually ate.
package foodlog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/shared"
)

// MealType classifies a log entry
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

var (
	ErrInvalidMealType = errors.New("meal type must be breakfast, lunch, dinner or snack")
	ErrEmptyEntry      = errors.New("a log entry needs a recipe or explicit macros")
	ErrNegativeMacros  = errors.New("logged macros must not be negative")
	ErrMissingUser     = errors.New("user id is required")
	ErrMissingDate     = errors.New("date is required")
	ErrNotFound        = errors.New("food log entry not found")
)

// ParseMealType validates a meal type name
func ParseMealType(s string) (MealType, error) {
	switch MealType(s) {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return MealType(s), nil
	}
	return "", ErrInvalidMealType
}

// Entry is one consumed item. When Macros is set it is used as-is,
// otherwise the referenced recipe's nutrition is used.
type Entry struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Date      shared.Date       `json:"date"`
	MealType  MealType          `json:"meal_type"`
	RecipeID  *uuid.UUID        `json:"recipe_id,omitempty"`
	Macros    *nutrition.Macros `json:"macros,omitempty"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewEntry creates a validated log entry
func NewEntry(userID uuid.UUID, date shared.Date, mealType MealType, recipeID *uuid.UUID, macros *nutrition.Macros, note string) (*Entry, error) {
	e := &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      date,
		MealType:  mealType,
		RecipeID:  recipeID,
		Macros:    macros,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the entry invariants
func (e *Entry) Validate() error {
	if e.UserID == uuid.Nil {
		return ErrMissingUser
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if _, err := ParseMealType(string(e.MealType)); err != nil {
		return err
	}
	if (e.RecipeID == nil || *e.RecipeID == uuid.Nil) && e.Macros == nil {
		return ErrEmptyEntry
	}
	if e.Macros != nil {
		m := e.Macros
		if m.Calories < 0 || m.Protein < 0 || m.Fat < 0 || m.Carbs < 0 {
			return ErrNegativeMacros
		}
	}
	return nil
}

// RecipeNutrition resolves a recipe's derived macros. ok is false when the
// recipe cannot be found; incomplete reports partial ingredient data.
type RecipeNutrition func(id uuid.UUID) (m nutrition.Macros, incomplete bool, ok bool)

// Sum totals the entries of one day. Explicit macros win over the recipe
// reference; an unresolvable recipe contributes zero and marks the result
// incomplete.
func Sum(entries []*Entry, resolve RecipeNutrition) nutrition.Intake {
	var in nutrition.Intake
	for _, e := range entries {
		in.Entries++
		switch {
		case e.Macros != nil:
			in.Macros = in.Macros.Add(*e.Macros)
			in.Resolved++
		case e.RecipeID != nil:
			m, incomplete, ok := resolve(*e.RecipeID)
			if !ok {
				in.Incomplete = true
				continue
			}
			in.Macros = in.Macros.Add(m)
			in.Resolved++
			if incomplete {
				in.Incomplete = true
			}
		}
	}
	return in
}

// RecipeIDs returns the recipe references of entries that have no explicit macros
func RecipeIDs(entries []*Entry) []uuid.UUID {
	var ids []uuid.UUID
	for _, e := range entries {
		if e.Macros == nil && e.RecipeID != nil {
			ids = append(ids, *e.RecipeID)
		}
	}
	return ids
}
