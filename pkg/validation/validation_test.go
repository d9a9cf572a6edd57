package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriplan/engine/pkg/errors"
)

type priceCommand struct {
	IngredientID uuid.UUID `json:"ingredient_id" validate:"notnil_uuid"`
	Amount       float64   `json:"amount" validate:"gte=0"`
	Currency     string    `json:"currency" validate:"currency"`
	Servings     int       `json:"servings" validate:"omitempty,gt=0"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.Struct(priceCommand{IngredientID: uuid.New(), Amount: 1.5, Currency: "USD"}))
	})

	t.Run("invalid fields are listed", func(t *testing.T) {
		err := v.Struct(priceCommand{Amount: -1, Currency: "usd"})

		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationFailed, appErr.Code)

		fields := appErr.Metadata["validation_errors"].(errors.ValidationErrors)
		require.Len(t, fields, 3)
		assert.Equal(t, "priceCommand.ingredient_id", fields[0].Field)
		assert.Equal(t, "currency", fields[2].Tag)
		assert.Contains(t, fields[2].Message, "currency")
	})
}
