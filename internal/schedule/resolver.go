// Package schedule resolves which advanced availability schedules apply to a
// calendar date and which time windows win for that day.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"booking-service/internal/civildate"
	"booking-service/internal/models"
)

// DayResolution is the outcome for a single date. When AppliedSchedules is
// empty the caller must fall back to the template's plain weekly windows.
// When it is non-empty, Windows is authoritative even if empty: a winning
// schedule with no windows for the weekday makes the day unavailable.
type DayResolution struct {
	Windows          []models.TimeWindow
	AppliedSchedules []string
}

// ResolveDay collects all active schedules matching the date, orders them by
// priority descending and takes the single winner's windows. Equal priority
// is broken by the lexicographically lowest schedule ID.
func ResolveDay(schedules []*models.AdvancedAvailabilitySchedule, date civildate.Date) (DayResolution, error) {
	var matched []*models.AdvancedAvailabilitySchedule

	for _, s := range schedules {
		ok, err := Matches(s, date)
		if err != nil {
			return DayResolution{}, fmt.Errorf("schedule %s: %w", s.ID, err)
		}
		if ok {
			matched = append(matched, s)
		}
	}

	if len(matched) == 0 {
		return DayResolution{}, nil
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	applied := make([]string, 0, len(matched))
	for _, s := range matched {
		applied = append(applied, s.ID)
	}

	winner := matched[0]
	windows := winner.Weekly[date.Weekday()]

	return DayResolution{
		Windows:          windows,
		AppliedSchedules: applied,
	}, nil
}

// Matches reports whether a schedule applies to the date: the schedule is
// active, its date range contains the date, and its recurrence rule (if any)
// produces an occurrence on the date.
func Matches(s *models.AdvancedAvailabilitySchedule, date civildate.Date) (bool, error) {
	if !s.IsActive {
		return false, nil
	}
	if date.Before(s.StartDate) {
		return false, nil
	}
	if s.EndDate != nil && date.After(*s.EndDate) {
		return false, nil
	}

	if s.Recurrence == nil {
		return true, nil
	}

	return recurrenceHits(s.Recurrence, s.StartDate, date)
}

// recurrenceHits expands the stored descriptor via RRULE semantics anchored
// at midnight UTC of the schedule start and checks for an occurrence on the
// target date. All anchors are civil-date derived, never zone-converted.
func recurrenceHits(r *models.RecurrenceRule, start, date civildate.Date) (bool, error) {
	freq, err := frequencyOf(r.Type)
	if err != nil {
		return false, err
	}

	opt := rrule.ROption{
		Freq:    freq,
		Dtstart: start.UTC(),
	}

	if r.Interval > 1 {
		opt.Interval = r.Interval
	}

	for _, wd := range r.DaysOfWeek {
		opt.Byweekday = append(opt.Byweekday, rruleWeekday(wd))
	}

	if r.WeekOfMonth != 0 && (r.Type == models.RecurMonthly || r.Type == models.RecurYearly) {
		opt.Bysetpos = []int{r.WeekOfMonth}
	}

	if r.MonthOfYear != 0 {
		opt.Bymonth = []int{int(r.MonthOfYear)}
	}

	switch r.EndType {
	case models.RecurEndOnDate:
		if r.EndDate != nil {
			opt.Until = r.EndDate.UTC().Add(24*time.Hour - time.Second)
		}
	case models.RecurEndAfterCount:
		if r.Count > 0 {
			opt.Count = r.Count
		}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return false, fmt.Errorf("invalid recurrence rule: %w", err)
	}

	dayStart := date.UTC()
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	return len(rule.Between(dayStart, dayEnd, true)) > 0, nil
}

func frequencyOf(t models.RecurrenceType) (rrule.Frequency, error) {
	switch t {
	case models.RecurDaily:
		return rrule.DAILY, nil
	case models.RecurWeekly:
		return rrule.WEEKLY, nil
	case models.RecurMonthly:
		return rrule.MONTHLY, nil
	case models.RecurYearly:
		return rrule.YEARLY, nil
	default:
		return 0, fmt.Errorf("unknown recurrence type %q", t)
	}
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	switch wd {
	case time.Sunday:
		return rrule.SU
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	default:
		return rrule.SA
	}
}
