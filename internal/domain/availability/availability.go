package availability

import (
	"sort"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
)

const conflictMessage = "availability: dates overlap a confirmed booking"

// Occupancy is an existing booking's claim on an apartment's calendar. Only blocking
// occupancies (confirmed bookings) make a range unavailable.
type Occupancy struct {
	BookingID string
	Range     daterange.DateRange
	Blocking  bool
}

type Result struct {
	Available bool
	Conflicts []string
}

// Check tests candidate against the blocking occupancies using the half-open overlap rule.
func Check(candidate daterange.DateRange, existing []Occupancy) Result {
	var conflicts []string
	for _, occ := range existing {
		if !occ.Blocking {
			continue
		}
		if candidate.Overlaps(occ.Range) {
			conflicts = append(conflicts, occ.BookingID)
		}
	}
	sort.Strings(conflicts)
	return Result{Available: len(conflicts) == 0, Conflicts: conflicts}
}

// Err converts an unavailable result into a conflict error.
func (r Result) Err() error {
	if r.Available {
		return nil
	}
	return faults.Conflict(conflictMessage, r.Conflicts...)
}
