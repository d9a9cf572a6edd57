// Package nutrition holds the macro vector and the rules that turn
// planned and logged intake into a per-day figure.
package nutrition

import "math"

// Macros is a calorie and macronutrient vector. Values keep full precision;
// use Rounded for presentation.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Add returns the element-wise sum
func (m Macros) Add(other Macros) Macros {
	return Macros{
		Calories: m.Calories + other.Calories,
		Protein:  m.Protein + other.Protein,
		Fat:      m.Fat + other.Fat,
		Carbs:    m.Carbs + other.Carbs,
	}
}

// Scale multiplies every component by factor
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Fat:      m.Fat * factor,
		Carbs:    m.Carbs * factor,
	}
}

// IsZero reports whether every component is zero
func (m Macros) IsZero() bool {
	return m == Macros{}
}

// Rounded rounds calories to whole kcal and grams to one decimal.
func (m Macros) Rounded() Macros {
	return Macros{
		Calories: math.Round(m.Calories),
		Protein:  round1(m.Protein),
		Fat:      round1(m.Fat),
		Carbs:    round1(m.Carbs),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Sum adds a list of vectors
func Sum(items ...Macros) Macros {
	var total Macros
	for _, m := range items {
		total = total.Add(m)
	}
	return total
}
