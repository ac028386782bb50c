// Package civildate holds a timezone-naive calendar date. Day-of-week and
// recurrence arithmetic must happen on this type, never on a converted
// instant: parsing "2024-03-01" through time.Parse in UTC and reading it
// back in a western timezone yields the previous day.
package civildate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Parse reads a strict YYYY-MM-DD string component-wise.
func Parse(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("civildate: invalid date %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return Date{}, fmt.Errorf("civildate: invalid year in %q", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("civildate: invalid month in %q", s)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return Date{}, fmt.Errorf("civildate: invalid day in %q", s)
	}

	d := Date{Year: year, Month: time.Month(month), Day: day}
	if d.normalized() != d {
		return Date{}, fmt.Errorf("civildate: nonexistent date %q", s)
	}

	return d, nil
}

func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func Today(loc *time.Location) Date {
	return FromTime(time.Now().In(loc))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Weekday is computed on the civil date itself via a UTC anchor, which is
// safe because no zone conversion happens.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return FromTime(t)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// In returns midnight of the date in the given location.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AtClock returns the instant at hh:mm local time on the date.
func (d Date) AtClock(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// UTC returns midnight of the date in UTC. Recurrence rules are evaluated
// against these anchors.
func (d Date) UTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) normalized() Date {
	return FromTime(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
}

// ParseClock reads a "15:04" wall-clock string into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("civildate: invalid clock time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("civildate: invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("civildate: invalid minute in %q", s)
	}
	return hour, minute, nil
}
