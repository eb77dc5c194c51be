package calendar

import (
	"strconv"
	"strings"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

const StayUnitNights = 7

var (
	ErrInvalidBoundaryDay = faults.Validation("calendar: stays must start and end on the changeover day")
	ErrInvalidDuration    = faults.Validation("calendar: stay length must be a positive multiple of 7 nights")
	ErrInvalidWeekday     = faults.Validation("calendar: changeover day must be 0-6 or a weekday name")
)

// IsValidBoundary reports whether date falls on the changeover weekday.
func IsValidBoundary(date time.Time, changeover time.Weekday) bool {
	return daterange.Normalize(date).Weekday() == changeover
}

// ValidateStay checks both endpoints against the changeover day and the stay length
// against whole weeks. Inputs are normalized first.
func ValidateStay(start, end time.Time, changeover time.Weekday) error {
	s := daterange.Normalize(start)
	e := daterange.Normalize(end)
	if !IsValidBoundary(s, changeover) || !IsValidBoundary(e, changeover) {
		return ErrInvalidBoundaryDay
	}
	if !e.After(s) {
		return ErrInvalidDuration
	}
	nights := int(e.Sub(s).Hours() / 24)
	if nights%StayUnitNights != 0 {
		return ErrInvalidDuration
	}
	return nil
}

// ValidateRange is ValidateStay for an already constructed range.
func ValidateRange(dr daterange.DateRange, changeover time.Weekday) error {
	return ValidateStay(dr.Start, dr.End, changeover)
}

// ParseWeekday accepts 0-6 (Sunday first) or an English weekday name.
func ParseWeekday(raw string) (time.Weekday, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n > 6 {
			return 0, ErrInvalidWeekday
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == raw {
			return d, nil
		}
	}
	return 0, ErrInvalidWeekday
}
