package nutrition

import (
	"github.com/nutriplan/engine/internal/domain/shared"
)

// Source tells where a day's figure came from.
type Source string

const (
	SourceActual  Source = "actual"
	SourcePlanned Source = "planned"
	SourceNone    Source = "none"
)

// Intake is a summed set of entries for one day from one source.
type Intake struct {
	Macros  Macros
	Entries int
	// Resolved counts entries that produced a figure. For planned intake this
	// is the number of slot recipes that could be found.
	Resolved   int
	Incomplete bool
}

// Daily is the nutrition figure reported for a single date.
type Daily struct {
	Date       shared.Date `json:"date"`
	Macros     Macros      `json:"macros"`
	Source     Source      `json:"source"`
	Incomplete bool        `json:"incomplete"`
}

// SelectDaily applies the source rule for one date. Logged intake wins as
// soon as it carries any calories, otherwise the plan is used when at least
// one of its recipes resolved. The two sources are never mixed.
func SelectDaily(date shared.Date, actual, planned Intake) Daily {
	if actual.Macros.Calories > 0 {
		return Daily{Date: date, Macros: actual.Macros, Source: SourceActual, Incomplete: actual.Incomplete}
	}
	if planned.Resolved > 0 {
		return Daily{Date: date, Macros: planned.Macros, Source: SourcePlanned, Incomplete: planned.Incomplete}
	}
	return Daily{Date: date, Source: SourceNone}
}

// AveragePolicy controls how days without data enter a window mean.
type AveragePolicy struct {
	// ExcludeNoData drops SourceNone days from both numerator and denominator.
	ExcludeNoData bool
}

// Average is the per-macro arithmetic mean of a window.
type Average struct {
	Macros      Macros `json:"macros"`
	Days        int    `json:"days"`
	CountedDays int    `json:"counted_days"`
	Incomplete  bool   `json:"incomplete"`
}

// WindowAverage averages days under policy. An empty window, or one where
// every day was excluded, yields the zero vector.
func WindowAverage(days []Daily, policy AveragePolicy) Average {
	avg := Average{Days: len(days)}

	var total Macros
	for _, d := range days {
		if policy.ExcludeNoData && d.Source == SourceNone {
			continue
		}
		avg.CountedDays++
		total = total.Add(d.Macros)
		if d.Incomplete {
			avg.Incomplete = true
		}
	}

	if avg.CountedDays == 0 {
		return avg
	}
	avg.Macros = total.Scale(1 / float64(avg.CountedDays))
	return avg
}
