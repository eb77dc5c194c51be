package daterange

import (
	"strings"
	"time"

	"staybook/internal/domain/shared/faults"
)

var (
	ErrInvalidRange = faults.Validation("daterange: end must be after start")
	ErrInvalidDate  = faults.Validation("daterange: date must be YYYY-MM-DD or RFC 3339")
)

const dayLayout = "2006-01-02"

// DateRange represents a half-open interval [Start, End) of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day returns the canonical instant for a calendar date: 12:00 UTC.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// Normalize keeps the calendar date of t as seen in t's own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return Day(y, m, d)
}

// Parse accepts a bare date or an RFC 3339 timestamp. Timestamps are moved into loc
// before the calendar date is taken.
func Parse(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(dayLayout, raw); err == nil {
		return Normalize(t), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.UTC
	}
	return Normalize(t.In(loc)), nil
}

func Format(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Normalize(start), End: Normalize(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.End.Sub(dr.Start).Hours() / 24)
}

// Weeks counts every started 7-night block.
func (dr DateRange) Weeks() int {
	n := dr.Nights()
	if n <= 0 {
		return 0
	}
	return (n + 6) / 7
}

// Overlaps uses half-open semantics, so back-to-back ranges never overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && dr.End.After(other.Start)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Normalize(t)
	return !t.Before(dr.Start) && t.Before(dr.End)
}

func (dr DateRange) String() string {
	return Format(dr.Start) + "/" + Format(dr.End)
}
