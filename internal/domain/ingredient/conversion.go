package ingredient

import (
	"strings"

	"github.com/google/uuid"
)

// ConversionTable maps display units to canonical units per ingredient.
// It is only used to render unit hints; aggregation always works in
// canonical units.
type ConversionTable struct {
	factors map[uuid.UUID]map[string]float64
}

// NewConversionTable creates an empty table
func NewConversionTable() *ConversionTable {
	return &ConversionTable{factors: make(map[uuid.UUID]map[string]float64)}
}

// Register records that one unit of displayUnit equals factor canonical units
func (t *ConversionTable) Register(id uuid.UUID, displayUnit string, factor float64) {
	unit := normalizeUnit(displayUnit)
	if factor <= 0 || unit == "" {
		return
	}
	if t.factors[id] == nil {
		t.factors[id] = make(map[string]float64)
	}
	t.factors[id][unit] = factor
}

// FromCanonical converts a canonical quantity into displayUnit
func (t *ConversionTable) FromCanonical(id uuid.UUID, quantity float64, displayUnit string) (float64, error) {
	factor, ok := t.factors[id][normalizeUnit(displayUnit)]
	if !ok {
		return 0, ErrUnknownUnit
	}
	return quantity / factor, nil
}

// Conversions builds a table from the display units of every ingredient in
// the snapshot
func (s Snapshot) Conversions() *ConversionTable {
	t := NewConversionTable()
	for id, ing := range s.items {
		for unit, factor := range ing.displayUnits {
			t.Register(id, unit, factor)
		}
	}
	return t
}

func normalizeUnit(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
