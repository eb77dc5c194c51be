package support

import (
	"time"

	"staybook/internal/domain/shared/daterange"
)

// ParseRange reads a stay from two client supplied dates in the business location.
func ParseRange(start, end string, loc *time.Location) (daterange.DateRange, error) {
	s, err := daterange.Parse(start, loc)
	if err != nil {
		return daterange.DateRange{}, err
	}
	e, err := daterange.Parse(end, loc)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(s, e)
}

// Today is the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return daterange.Normalize(now.In(loc))
}

func NowFunc(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}
