package availability

import (
	"context"
	"staybook/pkg/model"
	"time"
)

// OverlapFinder is the read the checker needs from storage. Implementations
// may over-return; the checker filters again.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error)
}

type Checker struct {
	finder OverlapFinder
}

func NewChecker(finder OverlapFinder) *Checker {
	return &Checker{finder: finder}
}

// FindConflicts returns the reservations whose interval overlaps
// [checkIn, checkOut], skipping excludeID. An empty result means the interval
// is free. Storage errors are returned unchanged.
func (c *Checker) FindConflicts(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error) {
	candidates, err := c.finder.FindOverlapping(ctx, checkIn, checkOut, excludeID)
	if err != nil {
		return nil, err
	}

	conflicts := make([]*model.Reservation, 0, len(candidates))
	for _, existing := range candidates {
		if excludeID != "" && existing.ID == excludeID {
			continue
		}
		if Overlaps(existing.CheckIn, existing.CheckOut, checkIn, checkOut) {
			conflicts = append(conflicts, existing)
		}
	}
	return conflicts, nil
}

// Overlaps reports whether [eIn, eOut] and [cIn, cOut] share any instant.
// Touching endpoints count.
func Overlaps(eIn, eOut, cIn, cOut time.Time) bool {
	return !eIn.After(cOut) && !eOut.Before(cIn)
}
