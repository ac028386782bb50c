// Package slots turns resolved availability windows into concrete bookable
// slots: window→instant conversion, busy-interval subtraction and
// duration-grid slicing.
package slots

import (
	"fmt"
	"sort"
	"time"

	"booking-service/internal/civildate"
	"booking-service/internal/models"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Slot is a concrete bookable interval of a specific duration.
type Slot struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// WindowIntervals converts wall-clock windows on a date into instants in the
// given location. Windows whose end does not lie after their start are
// skipped, matching template validation being advisory rather than load-time.
func WindowIntervals(date civildate.Date, windows []models.TimeWindow, loc *time.Location) ([]Interval, error) {
	result := make([]Interval, 0, len(windows))

	for _, w := range windows {
		sh, sm, err := civildate.ParseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("window start: %w", err)
		}
		eh, em, err := civildate.ParseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("window end: %w", err)
		}

		start := date.AtClock(sh, sm, loc)
		end := date.AtClock(eh, em, loc)
		if !end.After(start) {
			continue
		}

		result = append(result, Interval{Start: start, End: end})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })

	return result, nil
}

// Subtract removes busy intervals from the free set. Busy blocks touching a
// free interval shrink or split it; zero-length remainders are dropped.
func Subtract(free []Interval, busy []Interval) []Interval {
	result := free

	for _, b := range busy {
		if !b.End.After(b.Start) {
			continue
		}

		next := make([]Interval, 0, len(result)+1)
		for _, f := range result {
			// no overlap
			if !b.Start.Before(f.End) || !b.End.After(f.Start) {
				next = append(next, f)
				continue
			}
			if b.Start.After(f.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		result = next
	}

	return result
}

// GridSlots emits slots of the given duration aligned to each window start:
// candidate starts step by the duration from the window start, and a
// candidate is kept only when it sits fully inside one free interval.
func GridSlots(windows []Interval, free []Interval, durationMinutes int) []Slot {
	dur := time.Duration(durationMinutes) * time.Minute
	if dur <= 0 {
		return nil
	}

	var result []Slot

	for _, w := range windows {
		for cur := w.Start; !cur.Add(dur).After(w.End); cur = cur.Add(dur) {
			if containedInAny(free, Interval{Start: cur, End: cur.Add(dur)}) {
				result = append(result, Slot{
					Start:           cur,
					End:             cur.Add(dur),
					DurationMinutes: durationMinutes,
				})
			}
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })

	return result
}

// FittingDurations reports which allowed durations produce at least one slot.
func FittingDurations(windows []Interval, free []Interval, durations []int) []int {
	result := make([]int, 0, len(durations))
	for _, d := range durations {
		if len(GridSlots(windows, free, d)) > 0 {
			result = append(result, d)
		}
	}
	return result
}

// ResolveLocation picks the location applicable to the date: a non-default
// location whose range contains the date wins; otherwise the flagged default
// if any.
func ResolveLocation(locations []*models.ProviderLocation, date civildate.Date) *models.ProviderLocation {
	var fallback *models.ProviderLocation

	for _, l := range locations {
		if l.IsDefault {
			if fallback == nil {
				fallback = l
			}
			continue
		}
		if !date.Before(l.StartDate) && !date.After(l.EndDate) {
			return l
		}
	}

	return fallback
}

func containedInAny(free []Interval, iv Interval) bool {
	for _, f := range free {
		if !iv.Start.Before(f.Start) && !iv.End.After(f.End) {
			return true
		}
	}
	return false
}
