package daterange

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/shared/faults"
)

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	s, err := Parse(start, time.UTC)
	require.NoError(t, err)
	e, err := Parse(end, time.UTC)
	require.NoError(t, err)
	dr, err := New(s, e)
	require.NoError(t, err)
	return dr
}

func TestParseNormalizesToNoonUTC(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	got, err := Parse("2026-01-03", paris)
	require.NoError(t, err)
	assert.Equal(t, Day(2026, time.January, 3), got)

	// 23:00 UTC on the 2nd is already the 3rd in Paris.
	got, err = Parse("2026-01-02T23:00:00Z", paris)
	require.NoError(t, err)
	assert.Equal(t, Day(2026, time.January, 3), got)

	got, err = Parse("2026-01-02T23:00:00Z", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, Day(2026, time.January, 2), got)

	_, err = Parse("03/01/2026", paris)
	assert.ErrorIs(t, err, faults.ErrValidation)
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	_, err := New(Day(2026, 1, 10), Day(2026, 1, 10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(Day(2026, 1, 10), Day(2026, 1, 3))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, Day(2026, 1, 3))
	assert.ErrorIs(t, err, faults.ErrValidation)
}

func TestNightsAndWeeks(t *testing.T) {
	dr := mustRange(t, "2026-03-28", "2026-04-18")
	assert.Equal(t, 21, dr.Nights())
	assert.Equal(t, 3, dr.Weeks())

	partial := mustRange(t, "2026-03-28", "2026-04-06")
	assert.Equal(t, 9, partial.Nights())
	assert.Equal(t, 2, partial.Weeks())
}

func TestOverlapsIsSymmetricAndAllowsBackToBack(t *testing.T) {
	cases := []struct {
		name    string
		a, b    DateRange
		overlap bool
	}{
		{"shared week", mustRange(t, "2026-01-03", "2026-01-17"), mustRange(t, "2026-01-10", "2026-01-24"), true},
		{"back to back", mustRange(t, "2026-01-03", "2026-01-10"), mustRange(t, "2026-01-10", "2026-01-17"), false},
		{"contained", mustRange(t, "2026-01-03", "2026-01-31"), mustRange(t, "2026-01-10", "2026-01-17"), true},
		{"identical", mustRange(t, "2026-01-03", "2026-01-10"), mustRange(t, "2026-01-03", "2026-01-10"), true},
		{"disjoint", mustRange(t, "2026-01-03", "2026-01-10"), mustRange(t, "2026-02-07", "2026-02-14"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlap, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a))
		})
	}
}

func TestContainsDateIsHalfOpen(t *testing.T) {
	dr := mustRange(t, "2026-01-03", "2026-01-10")
	assert.True(t, dr.ContainsDate(Day(2026, 1, 3)))
	assert.True(t, dr.ContainsDate(time.Date(2026, 1, 9, 23, 59, 0, 0, time.UTC)))
	assert.False(t, dr.ContainsDate(Day(2026, 1, 10)))
	assert.Equal(t, "2026-01-03/2026-01-10", dr.String())
}
