package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/models"
)

func TestApplyLocationDates(t *testing.T) {
	t.Run("default forces the open range over submitted dates", func(t *testing.T) {
		loc := &models.ProviderLocation{IsDefault: true}

		err := applyLocationDates(loc, "2026-06-01", "2026-08-31")
		require.NoError(t, err)

		assert.Equal(t, models.DefaultLocationStart, loc.StartDate)
		assert.Equal(t, models.DefaultLocationEnd, loc.EndDate)
	})

	t.Run("default needs no dates at all", func(t *testing.T) {
		loc := &models.ProviderLocation{IsDefault: true}

		err := applyLocationDates(loc, "", "")
		require.NoError(t, err)

		assert.Equal(t, models.DefaultLocationStart, loc.StartDate)
		assert.Equal(t, models.DefaultLocationEnd, loc.EndDate)
	})

	t.Run("non-default keeps its finite range", func(t *testing.T) {
		loc := &models.ProviderLocation{}

		err := applyLocationDates(loc, "2026-06-01", "2026-08-31")
		require.NoError(t, err)

		assert.Equal(t, "2026-06-01", loc.StartDate.String())
		assert.Equal(t, "2026-08-31", loc.EndDate.String())
	})

	t.Run("rejected ranges", func(t *testing.T) {
		cases := []struct {
			name  string
			start string
			end   string
		}{
			{"start equals end", "2026-06-01", "2026-06-01"},
			{"start after end", "2026-08-31", "2026-06-01"},
			{"missing start", "", "2026-08-31"},
			{"missing end", "2026-06-01", ""},
			{"malformed start", "June 1st", "2026-08-31"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				loc := &models.ProviderLocation{}
				assert.Error(t, applyLocationDates(loc, tc.start, tc.end))
			})
		}
	})
}
