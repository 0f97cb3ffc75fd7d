package model

import (
	"time"
)

// DefaultPool identifies the single shared capacity pool every reservation
// competes for. Overlap is checked across the whole pool, not per unit label.
const DefaultPool = "default"

type Reservation struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	OwnerID    string    `json:"owner_id" bson:"owner_id" validate:"required"`
	UnitLabel  string    `json:"unit_label" bson:"unit_label" validate:"required,max=120"`
	CheckIn    time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" bson:"check_out" validate:"required"`
	GuestCount int       `json:"guest_count" bson:"guest_count" validate:"min=1,max=50"`
	Guests     []Guest   `json:"guests" bson:"-"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// ReservationInput is the create payload. It carries no id, owner or
// timestamps: those are assigned by the engine and the repository.
type ReservationInput struct {
	UnitLabel  string       `json:"unit_label" validate:"required,max=120"`
	CheckIn    time.Time    `json:"check_in" validate:"required"`
	CheckOut   time.Time    `json:"check_out" validate:"required"`
	GuestCount int          `json:"guest_count" validate:"min=1,max=50"`
	Guests     []GuestInput `json:"guests"`
}

// ReservationUpdate lists the only fields an update may touch. CheckIn and
// CheckOut travel as a pair. The guest list is create-only.
type ReservationUpdate struct {
	UnitLabel  *string    `json:"unit_label,omitempty" validate:"omitempty,max=120"`
	CheckIn    *time.Time `json:"check_in,omitempty"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
	GuestCount *int       `json:"guest_count,omitempty" validate:"omitempty,min=1,max=50"`
}

func (u *ReservationUpdate) IsEmpty() bool {
	return u.UnitLabel == nil && u.CheckIn == nil && u.CheckOut == nil && u.GuestCount == nil
}

// ReservationFields is what the repository writes on update.
type ReservationFields struct {
	UnitLabel  string
	CheckIn    time.Time
	CheckOut   time.Time
	GuestCount int
	UpdatedAt  time.Time
}

func (r *Reservation) Fields() ReservationFields {
	return ReservationFields{
		UnitLabel:  r.UnitLabel,
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		GuestCount: r.GuestCount,
		UpdatedAt:  r.UpdatedAt,
	}
}

// NormalizeTime maps t to UTC at millisecond resolution, the precision both
// storage backends keep.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
