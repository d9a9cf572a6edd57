package shared

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", d.String())

	_, err = ParseDate("05/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateRange_Days(t *testing.T) {
	r, err := ParseDateRange("2024-02-27", "2024-03-02")
	require.NoError(t, err)

	days := r.Days()
	require.Len(t, days, 5)
	assert.Equal(t, "2024-02-29", days[2].String())
	assert.Equal(t, 5, r.Len())
	assert.True(t, r.Contains(MustParseDate("2024-03-01")))
	assert.False(t, r.Contains(MustParseDate("2024-03-03")))
}

func TestDateRange_SingleDay(t *testing.T) {
	d := MustParseDate("2024-05-01")
	r, err := NewDateRange(d, d)
	require.NoError(t, err)
	assert.Equal(t, []Date{d}, r.Days())
}

func TestDateRange_Invalid(t *testing.T) {
	_, err := ParseDateRange("2024-05-02", "2024-05-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseDateRange("2024-01-01", "2025-06-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewDateRange(Date{}, MustParseDate("2024-01-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestWeekOf(t *testing.T) {
	// 2024-05-01 is a Wednesday
	w := WeekOf(MustParseDate("2024-05-01"))
	assert.Equal(t, "2024-04-29", w.Start.String())
	assert.Equal(t, "2024-05-05", w.End.String())
	assert.Equal(t, time.Monday, w.Start.Weekday())

	sunday := WeekOf(MustParseDate("2024-05-05"))
	assert.Equal(t, "2024-04-29", sunday.Start.String())
}

func TestDate_JSON(t *testing.T) {
	payload := struct {
		Date Date `json:"date"`
	}{Date: MustParseDate("2024-12-31")}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-12-31"}`, string(b))

	var decoded struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, decoded.Date.Equal(payload.Date))
}

func TestAggregateRoot_Events(t *testing.T) {
	var root AggregateRoot
	root.AddEvent(testEvent{})
	assert.Equal(t, 1, root.PendingEvents())

	events := root.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, 0, root.PendingEvents())
}

type testEvent struct{}

func (testEvent) EventName() string     { return "test.event" }
func (testEvent) OccurredAt() time.Time { return time.Time{} }
