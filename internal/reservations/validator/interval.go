package validator

import (
	"fmt"
	"time"
)

// IntervalRules are the temporal admission rules for a reservation.
type IntervalRules struct {
	MinLeadTime time.Duration
	MinStay     time.Duration
}

// Validate returns every rule the interval breaks, relative to now. An empty
// result means the interval is admissible.
func (r IntervalRules) Validate(checkIn, checkOut, now time.Time) []string {
	var violations []string

	if checkIn.Sub(now) < r.MinLeadTime {
		violations = append(violations, fmt.Sprintf("check_in must be at least %s in the future", r.MinLeadTime))
	}
	if checkOut.Sub(checkIn) < r.MinStay {
		violations = append(violations, fmt.Sprintf("check_out must be at least %s after check_in", r.MinStay))
	}

	return violations
}
