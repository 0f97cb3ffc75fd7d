package repository

import (
	"context"
	"errors"
	reservationserrors "staybook/internal/reservations/errors"
	"staybook/pkg/model"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWithTimeout(t *testing.T) {
	t.Run("adds deadline when none present", func(t *testing.T) {
		ctx, cancel := withTimeout(context.Background(), time.Second, false)
		defer cancel()

		if _, ok := ctx.Deadline(); !ok {
			t.Fatal("expected a deadline")
		}
	})

	t.Run("keeps earlier parent deadline", func(t *testing.T) {
		parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer parentCancel()

		ctx, cancel := withTimeout(parent, time.Hour, false)
		defer cancel()

		deadline, _ := ctx.Deadline()
		if time.Until(deadline) > time.Second {
			t.Errorf("expected parent deadline to win, got %v remaining", time.Until(deadline))
		}
	})

	t.Run("transaction context is left untouched", func(t *testing.T) {
		parent := context.Background()
		ctx, cancel := withTimeout(parent, time.Second, true)
		defer cancel()

		if ctx != parent {
			t.Error("expected the same context inside a transaction")
		}
		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline inside a transaction")
		}
	})
}

func TestAttachGuests(t *testing.T) {
	a := &model.Reservation{ID: "a"}
	b := &model.Reservation{ID: "b"}
	guests := []model.Guest{
		{ID: "g1", ReservationID: "a", Position: 0, Name: "Ann"},
		{ID: "g2", ReservationID: "b", Position: 0, Name: "Ben"},
		{ID: "g3", ReservationID: "a", Position: 1, Name: "Amy"},
		{ID: "g4", ReservationID: "zzz", Position: 0, Name: "Nobody"},
	}

	attachGuests([]*model.Reservation{a, b}, guests)

	if len(a.Guests) != 2 || a.Guests[0].Name != "Ann" || a.Guests[1].Name != "Amy" {
		t.Errorf("unexpected guests for a: %+v", a.Guests)
	}
	if len(b.Guests) != 1 || b.Guests[0].Name != "Ben" {
		t.Errorf("unexpected guests for b: %+v", b.Guests)
	}
}

func TestAttachGuestsEmptyListIsNotNil(t *testing.T) {
	r := &model.Reservation{ID: "a"}
	attachGuests([]*model.Reservation{r}, nil)

	if r.Guests == nil {
		t.Error("expected empty, non-nil guest slice")
	}
}

func TestReservationIDs(t *testing.T) {
	ids := reservationIDs([]*model.Reservation{{ID: "x"}, {ID: "y"}})
	if len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantOverlap bool
	}{
		{name: "exclusion violation", err: &pgconn.PgError{Code: pgExclusionViolation}, wantOverlap: true},
		{name: "serialization failure", err: &pgconn.PgError{Code: pgSerializationFailure}, wantOverlap: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, wantOverlap: false},
		{name: "plain error", err: errors.New("boom"), wantOverlap: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPgError("failed to create reservation", tt.err)
			if errors.Is(got, reservationserrors.ErrOverlap) != tt.wantOverlap {
				t.Errorf("errors.Is(ErrOverlap) = %v, want %v (%v)", !tt.wantOverlap, tt.wantOverlap, got)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected the driver error to stay wrapped")
			}
		})
	}
}
