package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

func week(t *testing.T, start time.Time, weeks int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(start, start.AddDate(0, 0, 7*weeks))
	require.NoError(t, err)
	return dr
}

func TestCheckOnlyConfirmedBookingsBlock(t *testing.T) {
	jan3 := daterange.Day(2026, 1, 3)
	existing := []Occupancy{
		{BookingID: "pending", Range: week(t, jan3, 2), Blocking: false},
	}
	res := Check(week(t, jan3, 1), existing)
	assert.True(t, res.Available)
	assert.Empty(t, res.Conflicts)
	assert.NoError(t, res.Err())
}

func TestCheckReportsAllConflicts(t *testing.T) {
	jan3 := daterange.Day(2026, 1, 3)
	existing := []Occupancy{
		{BookingID: "b-2", Range: week(t, jan3.AddDate(0, 0, 14), 1), Blocking: true},
		{BookingID: "b-1", Range: week(t, jan3, 1), Blocking: true},
		{BookingID: "b-3", Range: week(t, jan3.AddDate(0, 0, 28), 1), Blocking: true},
	}
	res := Check(week(t, jan3, 3), existing)
	assert.False(t, res.Available)
	assert.Equal(t, []string{"b-1", "b-2"}, res.Conflicts)

	err := res.Err()
	require.ErrorIs(t, err, faults.ErrConflict)
	var conflict *faults.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"b-1", "b-2"}, conflict.BookingIDs)
}

func TestCheckAllowsBackToBackStays(t *testing.T) {
	jan3 := daterange.Day(2026, 1, 3)
	existing := []Occupancy{
		{BookingID: "before", Range: week(t, jan3, 1), Blocking: true},
		{BookingID: "after", Range: week(t, jan3.AddDate(0, 0, 14), 1), Blocking: true},
	}
	res := Check(week(t, jan3.AddDate(0, 0, 7), 1), existing)
	assert.True(t, res.Available)
}
