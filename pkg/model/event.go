package model

import "time"

const (
	EventReservationCreated = "reservation.created"
	EventReservationUpdated = "reservation.updated"
	EventReservationDeleted = "reservation.deleted"
)

type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	OwnerID       string    `json:"owner_id"`
	UnitLabel     string    `json:"unit_label"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	GuestCount    int       `json:"guest_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewReservationEvent(eventType string, r *Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		OwnerID:       r.OwnerID,
		UnitLabel:     r.UnitLabel,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		GuestCount:    r.GuestCount,
		OccurredAt:    at,
	}
}
