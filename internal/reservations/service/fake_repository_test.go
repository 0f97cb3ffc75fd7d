package service

import (
	"context"
	"fmt"
	"sort"
	"staybook/internal/reservations/availability"
	reservationserrors "staybook/internal/reservations/errors"
	"staybook/pkg/model"
	"sync"
	"time"
)

// memoryRepository is an in-memory ReservationRepository. Errors can be
// injected per operation.
type memoryRepository struct {
	mu           sync.Mutex
	seq          int
	reservations map[string]*model.Reservation
	guests       map[string][]model.Guest

	createErr       error
	findErr         error
	listErr         error
	countErr        error
	overlapErr      error
	containedErr    error
	updateErr       error
	deleteErr       error
	deleteGuestsErr error
	commitErr       error

	// overlapDelay stalls FindOverlapping until it elapses or ctx is done.
	overlapDelay time.Duration

	createCalls int
	txCalls     int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		reservations: make(map[string]*model.Reservation),
		guests:       make(map[string][]model.Guest),
	}
}

func (m *memoryRepository) CreateReservation(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}

	m.seq++
	r.ID = fmt.Sprintf("res-%03d", m.seq)
	stored := *r
	stored.Guests = nil
	m.reservations[r.ID] = &stored

	for i := range r.Guests {
		m.seq++
		r.Guests[i].ID = fmt.Sprintf("guest-%03d", m.seq)
		r.Guests[i].ReservationID = r.ID
		r.Guests[i].Position = i
	}
	m.guests[r.ID] = append([]model.Guest(nil), r.Guests...)
	return nil
}

func (m *memoryRepository) FindReservation(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	if id == "malformed" {
		return nil, reservationserrors.ErrInvalidID
	}
	r, ok := m.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return m.withGuests(r), nil
}

func (m *memoryRepository) ListReservations(_ context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	all := m.sorted(func(*model.Reservation) bool { return true })
	if offset >= int64(len(all)) {
		return []*model.Reservation{}, nil
	}
	end := min(int(offset)+limit, len(all))
	return all[offset:end], nil
}

func (m *memoryRepository) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.reservations)), nil
}

func (m *memoryRepository) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error) {
	if m.overlapDelay > 0 {
		select {
		case <-time.After(m.overlapDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.overlapErr != nil {
		return nil, m.overlapErr
	}
	return m.sorted(func(r *model.Reservation) bool {
		return r.ID != excludeID && availability.Overlaps(r.CheckIn, r.CheckOut, checkIn, checkOut)
	}), nil
}

func (m *memoryRepository) FindContained(_ context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.containedErr != nil {
		return nil, m.containedErr
	}
	return m.sorted(func(r *model.Reservation) bool {
		return !r.CheckIn.Before(checkIn) && !r.CheckOut.After(checkOut)
	}), nil
}

func (m *memoryRepository) UpdateReservation(_ context.Context, id string, fields model.ReservationFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	r.UnitLabel = fields.UnitLabel
	r.CheckIn = fields.CheckIn
	r.CheckOut = fields.CheckOut
	r.GuestCount = fields.GuestCount
	r.UpdatedAt = fields.UpdatedAt
	return nil
}

func (m *memoryRepository) DeleteReservation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.reservations[id]; !ok {
		return reservationserrors.ErrNotFound
	}
	delete(m.reservations, id)
	return nil
}

func (m *memoryRepository) DeleteGuests(_ context.Context, reservationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteGuestsErr != nil {
		return 0, m.deleteGuestsErr
	}
	n := int64(len(m.guests[reservationID]))
	delete(m.guests, reservationID)
	return n, nil
}

// ExecuteTransaction snapshots state and restores it when fn or the commit
// fails.
func (m *memoryRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.txCalls++
	reservations, guests := m.snapshot()
	m.mu.Unlock()

	err := fn(ctx)
	if err == nil {
		err = m.commitErr
	}
	if err != nil {
		m.mu.Lock()
		m.reservations, m.guests = reservations, guests
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryRepository) Ping(context.Context) error { return nil }

func (m *memoryRepository) guestCount(reservationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.guests[reservationID])
}

func (m *memoryRepository) snapshot() (map[string]*model.Reservation, map[string][]model.Guest) {
	reservations := make(map[string]*model.Reservation, len(m.reservations))
	for id, r := range m.reservations {
		cp := *r
		reservations[id] = &cp
	}
	guests := make(map[string][]model.Guest, len(m.guests))
	for id, g := range m.guests {
		guests[id] = append([]model.Guest(nil), g...)
	}
	return reservations, guests
}

func (m *memoryRepository) withGuests(r *model.Reservation) *model.Reservation {
	cp := *r
	cp.Guests = append([]model.Guest{}, m.guests[r.ID]...)
	return &cp
}

func (m *memoryRepository) sorted(keep func(*model.Reservation) bool) []*model.Reservation {
	out := []*model.Reservation{}
	for _, r := range m.reservations {
		if keep(r) {
			out = append(out, m.withGuests(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].CheckIn.Before(out[j].CheckIn)
	})
	return out
}

func reservationOverlap() error {
	return reservationserrors.ErrOverlap
}
