// Package shopping aggregates ingredient demand across meal plans and
// prices it into a shopping list.
package shopping

import (
	"errors"
)

// Mode selects the quantity strategy
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeSaving Mode = "saving"
)

const (
	DefaultServings     = 2
	DefaultSavingFactor = 0.85
)

var (
	ErrInvalidServings     = errors.New("servings must be a positive integer")
	ErrInvalidMode         = errors.New("mode must be normal or saving")
	ErrInvalidSavingFactor = errors.New("saving factor must be in (0, 1]")
)

// ParseMode validates a mode name. Empty means normal.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeNormal:
		return ModeNormal, nil
	case ModeSaving:
		return ModeSaving, nil
	}
	return "", ErrInvalidMode
}

// Options scale aggregated demand
type Options struct {
	Servings     int
	Mode         Mode
	SavingFactor float64
}

// DefaultOptions returns two servings in normal mode
func DefaultOptions() Options {
	return Options{Servings: DefaultServings, Mode: ModeNormal, SavingFactor: DefaultSavingFactor}
}

// Validate checks servings, mode and factor
func (o Options) Validate() error {
	if o.Servings <= 0 {
		return ErrInvalidServings
	}
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if o.SavingFactor <= 0 || o.SavingFactor > 1 {
		return ErrInvalidSavingFactor
	}
	return nil
}

// Multiplier is servings, reduced by the saving factor in saving mode
func (o Options) Multiplier() float64 {
	m := float64(o.Servings)
	if o.Mode == ModeSaving {
		m *= o.SavingFactor
	}
	return m
}
