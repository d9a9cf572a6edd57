package shared

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage form of a civil date.
const DateLayout = "2006-01-02"

// MaxRangeDays bounds a DateRange so one request cannot scan years of plans.
const MaxRangeDays = 366

var (
	// ErrInvalidDate is returned for strings that are not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidRange is returned when a range ends before it starts or is too long
	ErrInvalidRange = errors.New("invalid date range")
)

// Date is a calendar day with no time zone attached.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return NewDate(t.Date()), nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// IsZero reports whether d is the zero Date
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// AddDays returns d shifted by n days
func (d Date) AddDays(n int) Date {
	return NewDate(d.t.AddDate(0, 0, n).Date())
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Weekday returns the day of the week
func (d Date) Weekday() time.Weekday {
	return d.t.Weekday()
}

// StartOfWeek returns the Monday on or before d
func (d Date) StartOfWeek() Date {
	offset := (int(d.t.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Time returns midnight UTC of d
func (d Date) Time() time.Time {
	return d.t
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewDateRange validates and builds an inclusive range
func NewDateRange(start, end Date) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ParseDateRange parses both bounds and validates the result
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// Validate checks ordering and length
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidRange)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange, r.End, r.Start)
	}
	if r.Len() > MaxRangeDays {
		return fmt.Errorf("%w: spans %d days, limit is %d", ErrInvalidRange, r.Len(), MaxRangeDays)
	}
	return nil
}

// Len returns the number of days in the range
func (r DateRange) Len() int {
	return int(r.End.t.Sub(r.Start.t).Hours()/24) + 1
}

// Days enumerates every date in the range in order
func (r DateRange) Days() []Date {
	n := r.Len()
	if n <= 0 {
		return nil
	}
	days := make([]Date, 0, n)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether d falls inside the range
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// WeekOf returns the Monday-to-Sunday range containing d
func WeekOf(d Date) DateRange {
	start := d.StartOfWeek()
	return DateRange{Start: start, End: start.AddDays(6)}
}
