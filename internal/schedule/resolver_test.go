package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/civildate"
	"booking-service/internal/models"
)

func date(s string) civildate.Date {
	d, err := civildate.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func window(start, end string) models.TimeWindow {
	return models.TimeWindow{Start: start, End: end}
}

func TestResolveDay_NoMatch(t *testing.T) {
	schedules := []*models.AdvancedAvailabilitySchedule{
		{
			ID:        "sched-1",
			StartDate: date("2026-06-01"),
			EndDate:   ptr(date("2026-06-30")),
			IsActive:  true,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("10:00", "14:00")},
			},
		},
	}

	res, err := ResolveDay(schedules, date("2026-07-06"))
	require.NoError(t, err)
	assert.Empty(t, res.AppliedSchedules)
	assert.Empty(t, res.Windows)
}

func TestResolveDay_InactiveSkipped(t *testing.T) {
	schedules := []*models.AdvancedAvailabilitySchedule{
		{
			ID:        "sched-1",
			StartDate: date("2026-06-01"),
			IsActive:  false,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("10:00", "14:00")},
			},
		},
	}

	res, err := ResolveDay(schedules, date("2026-06-01"))
	require.NoError(t, err)
	assert.Empty(t, res.AppliedSchedules)
}

func TestResolveDay_WinnerIsAuthoritativeEvenWhenEmpty(t *testing.T) {
	// The winning schedule has no windows for Monday, so the day is
	// unavailable even though a lower-priority schedule covers it.
	schedules := []*models.AdvancedAvailabilitySchedule{
		{
			ID:        "low",
			StartDate: date("2026-06-01"),
			Priority:  1,
			IsActive:  true,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("09:00", "17:00")},
			},
		},
		{
			ID:        "high",
			StartDate: date("2026-06-01"),
			Priority:  5,
			IsActive:  true,
			Weekly:    models.WeeklyWindows{},
		},
	}

	res, err := ResolveDay(schedules, date("2026-06-01"))
	require.NoError(t, err)

	require.Len(t, res.AppliedSchedules, 2)
	assert.Equal(t, "high", res.AppliedSchedules[0])
	assert.Empty(t, res.Windows)
}

func TestResolveDay_HighestPriorityWins(t *testing.T) {
	schedules := []*models.AdvancedAvailabilitySchedule{
		{
			ID:        "regular",
			StartDate: date("2026-06-01"),
			Priority:  1,
			IsActive:  true,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("09:00", "17:00")},
			},
		},
		{
			ID:        "summer",
			StartDate: date("2026-06-01"),
			Priority:  10,
			IsActive:  true,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("08:00", "12:00")},
			},
		},
	}

	res, err := ResolveDay(schedules, date("2026-06-01"))
	require.NoError(t, err)

	// Winner's windows only, never a union.
	require.Len(t, res.Windows, 1)
	assert.Equal(t, window("08:00", "12:00"), res.Windows[0])
}

func TestResolveDay_EqualPriorityLowestIDWins(t *testing.T) {
	schedules := []*models.AdvancedAvailabilitySchedule{
		{
			ID:        "b-sched",
			StartDate: date("2026-06-01"),
			Priority:  3,
			IsActive:  true,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("13:00", "15:00")},
			},
		},
		{
			ID:        "a-sched",
			StartDate: date("2026-06-01"),
			Priority:  3,
			IsActive:  true,
			Weekly: models.WeeklyWindows{
				time.Monday: {window("10:00", "12:00")},
			},
		},
	}

	res, err := ResolveDay(schedules, date("2026-06-01"))
	require.NoError(t, err)

	assert.Equal(t, "a-sched", res.AppliedSchedules[0])
	require.Len(t, res.Windows, 1)
	assert.Equal(t, window("10:00", "12:00"), res.Windows[0])
}

func TestMatches_DateRange(t *testing.T) {
	s := &models.AdvancedAvailabilitySchedule{
		ID:        "sched-1",
		StartDate: date("2026-06-10"),
		EndDate:   ptr(date("2026-06-20")),
		IsActive:  true,
	}

	cases := []struct {
		day  string
		want bool
	}{
		{"2026-06-09", false},
		{"2026-06-10", true},
		{"2026-06-20", true},
		{"2026-06-21", false},
	}

	for _, tc := range cases {
		got, err := Matches(s, date(tc.day))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "day %s", tc.day)
	}
}

func TestMatches_WeeklyRecurrence(t *testing.T) {
	// Every Tuesday and Thursday starting Monday 2026-06-01.
	s := &models.AdvancedAvailabilitySchedule{
		ID:        "sched-1",
		StartDate: date("2026-06-01"),
		IsActive:  true,
		Recurrence: &models.RecurrenceRule{
			Type:       models.RecurWeekly,
			DaysOfWeek: []time.Weekday{time.Tuesday, time.Thursday},
			EndType:    models.RecurEndNever,
		},
	}

	cases := []struct {
		day  string
		want bool
	}{
		{"2026-06-02", true},  // Tuesday
		{"2026-06-04", true},  // Thursday
		{"2026-06-03", false}, // Wednesday
		{"2026-06-09", true},  // next Tuesday
	}

	for _, tc := range cases {
		got, err := Matches(s, date(tc.day))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "day %s", tc.day)
	}
}

func TestMatches_BiweeklyInterval(t *testing.T) {
	s := &models.AdvancedAvailabilitySchedule{
		ID:        "sched-1",
		StartDate: date("2026-06-01"), // Monday
		IsActive:  true,
		Recurrence: &models.RecurrenceRule{
			Type:       models.RecurWeekly,
			Interval:   2,
			DaysOfWeek: []time.Weekday{time.Monday},
			EndType:    models.RecurEndNever,
		},
	}

	got, err := Matches(s, date("2026-06-08"))
	require.NoError(t, err)
	assert.False(t, got, "skipped week should not match")

	got, err = Matches(s, date("2026-06-15"))
	require.NoError(t, err)
	assert.True(t, got, "second interval week should match")
}

func TestMatches_MonthlyNthWeekday(t *testing.T) {
	// First Friday of every month.
	s := &models.AdvancedAvailabilitySchedule{
		ID:        "sched-1",
		StartDate: date("2026-06-01"),
		IsActive:  true,
		Recurrence: &models.RecurrenceRule{
			Type:        models.RecurMonthly,
			DaysOfWeek:  []time.Weekday{time.Friday},
			WeekOfMonth: 1,
			EndType:     models.RecurEndNever,
		},
	}

	got, err := Matches(s, date("2026-06-05")) // first Friday of June
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Matches(s, date("2026-06-12")) // second Friday
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Matches(s, date("2026-07-03")) // first Friday of July
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMatches_RecurrenceEndOnDate(t *testing.T) {
	end := date("2026-06-10")
	s := &models.AdvancedAvailabilitySchedule{
		ID:        "sched-1",
		StartDate: date("2026-06-01"),
		IsActive:  true,
		Recurrence: &models.RecurrenceRule{
			Type:    models.RecurDaily,
			EndType: models.RecurEndOnDate,
			EndDate: &end,
		},
	}

	got, err := Matches(s, date("2026-06-10"))
	require.NoError(t, err)
	assert.True(t, got, "end date itself is included")

	got, err = Matches(s, date("2026-06-11"))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMatches_RecurrenceEndAfterCount(t *testing.T) {
	s := &models.AdvancedAvailabilitySchedule{
		ID:        "sched-1",
		StartDate: date("2026-06-01"),
		IsActive:  true,
		Recurrence: &models.RecurrenceRule{
			Type:    models.RecurDaily,
			EndType: models.RecurEndAfterCount,
			Count:   3,
		},
	}

	got, err := Matches(s, date("2026-06-03"))
	require.NoError(t, err)
	assert.True(t, got, "third occurrence")

	got, err = Matches(s, date("2026-06-04"))
	require.NoError(t, err)
	assert.False(t, got, "past the count")
}

func ptr[T any](v T) *T { return &v }
