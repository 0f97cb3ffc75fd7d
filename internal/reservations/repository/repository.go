package repository

import (
	"context"
	"staybook/pkg/model"
	"time"
)

// ReservationRepository is the persistence collaborator of the reservation
// engine. Every read that returns reservations to callers attaches their
// guests; FindOverlapping does not.
type ReservationRepository interface {
	// CreateReservation stores r and its guests and assigns their ids.
	CreateReservation(ctx context.Context, r *model.Reservation) error
	FindReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error)
	Count(ctx context.Context) (int64, error)
	// FindOverlapping returns reservations sharing any instant with
	// [checkIn, checkOut], endpoints included, other than excludeID.
	FindOverlapping(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error)
	// FindContained returns reservations lying entirely inside [checkIn, checkOut].
	FindContained(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error)
	UpdateReservation(ctx context.Context, id string, fields model.ReservationFields) error
	DeleteReservation(ctx context.Context, id string) error
	DeleteGuests(ctx context.Context, reservationID string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

// withTimeout bounds ctx by timeout, keeping an earlier deadline if ctx
// already has one. Inside a transaction the context is returned unchanged.
func withTimeout(ctx context.Context, timeout time.Duration, inTx bool) (context.Context, context.CancelFunc) {
	if inTx {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func attachGuests(reservations []*model.Reservation, guests []model.Guest) {
	byID := make(map[string]*model.Reservation, len(reservations))
	for _, r := range reservations {
		r.Guests = []model.Guest{}
		byID[r.ID] = r
	}
	for _, g := range guests {
		if r, ok := byID[g.ReservationID]; ok {
			r.Guests = append(r.Guests, g)
		}
	}
}

func reservationIDs(reservations []*model.Reservation) []string {
	ids := make([]string, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ID)
	}
	return ids
}
