package shopping

import (
	"sort"

	"github.com/google/uuid"
)

// CurrencyTotal sums costs in one currency
type CurrencyTotal struct {
	Currency  string  `json:"currency"`
	Total     float64 `json:"total"`
	Remaining float64 `json:"remaining"`
}

// Summary projects a list against the caller's checked state
type Summary struct {
	Totals         []CurrencyTotal `json:"totals"`
	ItemCount      int             `json:"item_count"`
	CheckedCount   int             `json:"checked_count"`
	EstimatedItems int             `json:"estimated_items"`
}

// Summarize totals cost per currency and the cost of items not yet checked.
// Checked ids that are not on the list are ignored.
func Summarize(items []Item, checked map[uuid.UUID]bool) Summary {
	s := Summary{ItemCount: len(items)}
	byCurrency := make(map[string]*CurrencyTotal)

	for _, it := range items {
		t, ok := byCurrency[it.Currency]
		if !ok {
			t = &CurrencyTotal{Currency: it.Currency}
			byCurrency[it.Currency] = t
		}
		t.Total += it.EstimatedCost
		if checked[it.IngredientID] {
			s.CheckedCount++
		} else {
			t.Remaining += it.EstimatedCost
		}
		if it.Estimate {
			s.EstimatedItems++
		}
	}

	s.Totals = make([]CurrencyTotal, 0, len(byCurrency))
	for _, t := range byCurrency {
		s.Totals = append(s.Totals, *t)
	}
	sort.Slice(s.Totals, func(i, j int) bool { return s.Totals[i].Currency < s.Totals[j].Currency })
	return s
}
