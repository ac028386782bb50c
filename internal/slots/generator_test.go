package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/civildate"
	"booking-service/internal/models"
)

var testDay = civildate.Date{Year: 2026, Month: time.June, Day: 15}

func at(hour, minute int) time.Time {
	return testDay.AtClock(hour, minute, time.UTC)
}

func iv(sh, sm, eh, em int) Interval {
	return Interval{Start: at(sh, sm), End: at(eh, em)}
}

func TestWindowIntervals(t *testing.T) {
	t.Run("converts and sorts windows", func(t *testing.T) {
		windows := []models.TimeWindow{
			{Start: "14:00", End: "17:00"},
			{Start: "09:00", End: "12:00"},
		}

		got, err := WindowIntervals(testDay, windows, time.UTC)
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, iv(9, 0, 12, 0), got[0])
		assert.Equal(t, iv(14, 0, 17, 0), got[1])
	})

	t.Run("skips inverted window", func(t *testing.T) {
		windows := []models.TimeWindow{
			{Start: "12:00", End: "09:00"},
			{Start: "10:00", End: "10:00"},
		}

		got, err := WindowIntervals(testDay, windows, time.UTC)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects malformed clock", func(t *testing.T) {
		_, err := WindowIntervals(testDay, []models.TimeWindow{{Start: "9am", End: "12:00"}}, time.UTC)
		assert.Error(t, err)
	})
}

func TestSubtract(t *testing.T) {
	t.Run("busy block splits a window", func(t *testing.T) {
		free := []Interval{iv(9, 0, 12, 0)}
		busy := []Interval{iv(10, 0, 10, 30)}

		got := Subtract(free, busy)

		require.Len(t, got, 2)
		assert.Equal(t, iv(9, 0, 10, 0), got[0])
		assert.Equal(t, iv(10, 30, 12, 0), got[1])
	})

	t.Run("busy at window edge trims it", func(t *testing.T) {
		free := []Interval{iv(9, 0, 12, 0)}
		busy := []Interval{iv(9, 0, 9, 30)}

		got := Subtract(free, busy)

		require.Len(t, got, 1)
		assert.Equal(t, iv(9, 30, 12, 0), got[0])
	})

	t.Run("busy covering the window removes it", func(t *testing.T) {
		free := []Interval{iv(9, 0, 12, 0)}
		busy := []Interval{iv(8, 0, 13, 0)}

		assert.Empty(t, Subtract(free, busy))
	})

	t.Run("adjacent busy does not touch the window", func(t *testing.T) {
		free := []Interval{iv(9, 0, 12, 0)}
		busy := []Interval{iv(12, 0, 13, 0)}

		got := Subtract(free, busy)
		require.Len(t, got, 1)
		assert.Equal(t, iv(9, 0, 12, 0), got[0])
	})
}

func TestGridSlots(t *testing.T) {
	t.Run("grid realigns after a busy block", func(t *testing.T) {
		// 09:00-12:00 window, 10:00-10:30 busy, 30-minute slots. The grid
		// steps from the window start, so 10:00 drops out and the rest stay.
		windows := []Interval{iv(9, 0, 12, 0)}
		free := Subtract(windows, []Interval{iv(10, 0, 10, 30)})

		got := GridSlots(windows, free, 30)

		starts := make([]time.Time, 0, len(got))
		for _, s := range got {
			starts = append(starts, s.Start)
		}

		assert.Equal(t, []time.Time{
			at(9, 0), at(9, 30), at(10, 30), at(11, 0), at(11, 30),
		}, starts)
	})

	t.Run("partial free remainder yields no slot", func(t *testing.T) {
		// 45 busy minutes leave a 15-minute hole that no 30-minute grid
		// candidate fits into.
		windows := []Interval{iv(9, 0, 10, 15)}
		free := Subtract(windows, []Interval{iv(9, 30, 10, 15)})

		got := GridSlots(windows, free, 30)

		require.Len(t, got, 1)
		assert.Equal(t, at(9, 0), got[0].Start)
	})

	t.Run("duration longer than window yields nothing", func(t *testing.T) {
		windows := []Interval{iv(9, 0, 10, 0)}
		assert.Empty(t, GridSlots(windows, windows, 90))
	})

	t.Run("zero duration yields nothing", func(t *testing.T) {
		windows := []Interval{iv(9, 0, 10, 0)}
		assert.Empty(t, GridSlots(windows, windows, 0))
	})

	t.Run("slot duration is recorded", func(t *testing.T) {
		windows := []Interval{iv(9, 0, 10, 0)}
		got := GridSlots(windows, windows, 60)

		require.Len(t, got, 1)
		assert.Equal(t, 60, got[0].DurationMinutes)
		assert.Equal(t, at(10, 0), got[0].End)
	})
}

func TestFittingDurations(t *testing.T) {
	windows := []Interval{iv(9, 0, 9, 45)}

	got := FittingDurations(windows, windows, []int{15, 30, 60})

	assert.Equal(t, []int{15, 30}, got)
}

func TestResolveLocation(t *testing.T) {
	def := &models.ProviderLocation{
		ID:        "loc-default",
		IsDefault: true,
		StartDate: models.DefaultLocationStart,
		EndDate:   models.DefaultLocationEnd,
	}
	trip := &models.ProviderLocation{
		ID:        "loc-trip",
		StartDate: civildate.Date{Year: 2026, Month: time.June, Day: 10},
		EndDate:   civildate.Date{Year: 2026, Month: time.June, Day: 20},
	}

	locations := []*models.ProviderLocation{def, trip}

	t.Run("ranged location wins inside its range", func(t *testing.T) {
		got := ResolveLocation(locations, civildate.Date{Year: 2026, Month: time.June, Day: 15})
		assert.Equal(t, "loc-trip", got.ID)
	})

	t.Run("default applies outside the range", func(t *testing.T) {
		got := ResolveLocation(locations, civildate.Date{Year: 2026, Month: time.June, Day: 25})
		assert.Equal(t, "loc-default", got.ID)
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		got := ResolveLocation(locations, civildate.Date{Year: 2026, Month: time.June, Day: 10})
		assert.Equal(t, "loc-trip", got.ID)

		got = ResolveLocation(locations, civildate.Date{Year: 2026, Month: time.June, Day: 20})
		assert.Equal(t, "loc-trip", got.ID)
	})

	t.Run("no locations yields nil", func(t *testing.T) {
		assert.Nil(t, ResolveLocation(nil, testDay))
	})
}
