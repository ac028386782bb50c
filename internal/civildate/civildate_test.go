package civildate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		d, err := Parse("2026-03-01")
		require.NoError(t, err)
		assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 1}, d)
	})

	t.Run("leap day", func(t *testing.T) {
		d, err := Parse("2024-02-29")
		require.NoError(t, err)
		assert.Equal(t, 29, d.Day)
	})

	t.Run("rejects nonexistent date", func(t *testing.T) {
		_, err := Parse("2026-02-30")
		assert.Error(t, err)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, s := range []string{"", "2026-03", "2026/03/01", "26-03-01", "2026-13-01", "2026-00-10", "2026-01-32"} {
			_, err := Parse(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestDate_Weekday(t *testing.T) {
	d, err := Parse("2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
}

func TestDate_AddDays(t *testing.T) {
	d := Date{Year: 2026, Month: time.December, Day: 30}
	assert.Equal(t, Date{Year: 2027, Month: time.January, Day: 2}, d.AddDays(3))
	assert.Equal(t, Date{Year: 2026, Month: time.December, Day: 28}, d.AddDays(-2))
}

func TestDate_Ordering(t *testing.T) {
	a := Date{Year: 2026, Month: time.March, Day: 1}
	b := Date{Year: 2026, Month: time.March, Day: 2}

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.False(t, a.After(a))
}

func TestDate_String(t *testing.T) {
	d := Date{Year: 2026, Month: time.February, Day: 3}
	assert.Equal(t, "2026-02-03", d.String())
}

func TestDate_AtClock(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	d := Date{Year: 2026, Month: time.June, Day: 15}
	got := d.AtClock(9, 30, loc)

	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, d, FromTime(got))
}

func TestParseClock(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		h, m, err := ParseClock("09:30")
		require.NoError(t, err)
		assert.Equal(t, 9, h)
		assert.Equal(t, 30, m)
	})

	t.Run("midnight", func(t *testing.T) {
		h, m, err := ParseClock("00:00")
		require.NoError(t, err)
		assert.Equal(t, 0, h)
		assert.Equal(t, 0, m)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"24:00", "12:60", "9", "9:5:0", "ab:cd"} {
			_, _, err := ParseClock(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}
