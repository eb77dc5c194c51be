package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

func TestIsValidBoundary(t *testing.T) {
	saturday := daterange.Day(2026, time.January, 3)
	assert.True(t, IsValidBoundary(saturday, time.Saturday))
	assert.False(t, IsValidBoundary(saturday.AddDate(0, 0, 1), time.Saturday))
	assert.True(t, IsValidBoundary(saturday.AddDate(0, 0, 1), time.Sunday))
}

func TestValidateStay(t *testing.T) {
	sat := daterange.Day(2026, time.January, 3)
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  error
	}{
		{"one week", sat, sat.AddDate(0, 0, 7), nil},
		{"three weeks", sat, sat.AddDate(0, 0, 21), nil},
		{"start not changeover", sat.AddDate(0, 0, 1), sat.AddDate(0, 0, 7), ErrInvalidBoundaryDay},
		{"end not changeover", sat, sat.AddDate(0, 0, 10), ErrInvalidBoundaryDay},
		{"zero length", sat, sat, ErrInvalidDuration},
		{"end before start", sat.AddDate(0, 0, 7), sat, ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStay(tc.start, tc.end, time.Saturday)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, faults.ErrValidation)
		})
	}
}

func TestValidateStayRejectsEveryOtherWeekday(t *testing.T) {
	sat := daterange.Day(2026, time.January, 3)
	for offset := 1; offset < 7; offset++ {
		start := sat.AddDate(0, 0, offset)
		assert.ErrorIs(t, ValidateStay(start, start.AddDate(0, 0, 7), time.Saturday), ErrInvalidBoundaryDay, "offset %d", offset)
	}
}

func TestValidateStayNormalizesTimestamps(t *testing.T) {
	start := time.Date(2026, time.January, 3, 0, 30, 0, 0, time.UTC)
	end := time.Date(2026, time.January, 10, 23, 30, 0, 0, time.UTC)
	assert.NoError(t, ValidateStay(start, end, time.Saturday))
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("6")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	d, err = ParseWeekday(" Sunday ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("7")
	assert.ErrorIs(t, err, ErrInvalidWeekday)
	_, err = ParseWeekday("someday")
	assert.ErrorIs(t, err, faults.ErrValidation)
}
