package service

import (
	"context"
	"errors"
	"staybook/internal/reservations/availability"
	reservationserrors "staybook/internal/reservations/errors"
	"staybook/internal/reservations/events"
	"staybook/internal/reservations/repository"
	"staybook/internal/reservations/validator"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	stepLookup       = "lookup"
	stepAvailability = "availability"
	stepWrite        = "write"
	stepLock         = "lock"

	conflictMessage = "the requested dates are already booked"
	publishTimeout  = 5 * time.Second

	leaseMarginDivisor = 10
)

type ReservationService interface {
	Create(ctx context.Context, input *model.ReservationInput, ownerID string) (*model.Reservation, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	Update(ctx context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error)
	Delete(ctx context.Context, id string) (*model.Reservation, error)
	FindByWindow(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	checker   *availability.Checker
	locker    lock.Locker
	publisher events.Publisher
	validator *validator.ReservationValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	locker lock.Locker,
	publisher events.Publisher,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) ReservationService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &reservationService{
		repo:      repo,
		checker:   availability.NewChecker(repo),
		locker:    locker,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationService) Create(ctx context.Context, input *model.ReservationInput, ownerID string) (*model.Reservation, error) {
	if ownerID == "" {
		return nil, apperrors.Unauthorized("an authenticated owner is required")
	}

	now := s.clock()
	s.sanitizeInput(input)
	if err := s.validator.ValidateCreate(input, now); err != nil {
		s.log(ctx).Warn("Reservation validation failed", "error", err)
		return nil, err
	}

	reservation := newReservation(input, ownerID, now)

	release, err := s.acquirePoolLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	leaseCtx, cancelLease := s.leaseContext(ctx)
	defer cancelLease()

	err = s.repo.ExecuteTransaction(leaseCtx, func(txCtx context.Context) error {
		if err := s.ensureAvailable(txCtx, reservation.CheckIn, reservation.CheckOut, ""); err != nil {
			return err
		}
		if err := s.repo.CreateReservation(txCtx, reservation); err != nil {
			return s.writeError(err)
		}
		return nil
	})
	if err != nil {
		err = s.leaseError(ctx, leaseCtx, err)
		s.log(ctx).Error("Failed to create reservation", "error", err)
		return nil, err
	}
	release()

	s.log(ctx).Info("Reservation created successfully",
		"id", reservation.ID,
		"check_in", reservation.CheckIn,
		"check_out", reservation.CheckOut,
		"guests", len(reservation.Guests),
	)
	s.publish(ctx, model.EventReservationCreated, reservation)
	return reservation, nil
}

func (s *reservationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var reservations []*model.Reservation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		if err != nil {
			s.log(ctx).Error("Failed to count reservations", "error", err)
			return apperrors.Storage(stepLookup, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reservations, err = s.repo.ListReservations(gctx, limit, offset)
		if err != nil {
			s.log(ctx).Error("Failed to list reservations", "limit", limit, "offset", offset, "error", err)
			return apperrors.Storage(stepLookup, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return reservations, count, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return s.load(ctx, id)
}

func (s *reservationService) Update(ctx context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error) {
	s.sanitizeUpdate(update)
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.log(ctx).Warn("Reservation update validation failed", "id", id, "error", err)
		return nil, err
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	merged := mergeUpdate(existing, update)
	merged.UpdatedAt = now
	if err := s.validator.ValidateReservation(merged, now); err != nil {
		s.log(ctx).Warn("Reservation update validation failed", "id", id, "error", err)
		return nil, err
	}

	release, err := s.acquirePoolLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	leaseCtx, cancelLease := s.leaseContext(ctx)
	defer cancelLease()

	err = s.repo.ExecuteTransaction(leaseCtx, func(txCtx context.Context) error {
		if err := s.ensureAvailable(txCtx, merged.CheckIn, merged.CheckOut, id); err != nil {
			return err
		}
		if err := s.repo.UpdateReservation(txCtx, id, merged.Fields()); err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Reservation", id)
			}
			return s.writeError(err)
		}
		return nil
	})
	if err != nil {
		err = s.leaseError(ctx, leaseCtx, err)
		s.log(ctx).Error("Failed to update reservation", "id", id, "error", err)
		return nil, err
	}
	release()

	s.log(ctx).Info("Reservation updated successfully", "id", id)
	s.publish(ctx, model.EventReservationUpdated, merged)
	return merged, nil
}

func (s *reservationService) Delete(ctx context.Context, id string) (*model.Reservation, error) {
	snapshot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.DeleteGuests(txCtx, id); err != nil {
			return apperrors.GuestDeletionFailed(id, err)
		}
		if err := s.repo.DeleteReservation(txCtx, id); err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Reservation", id)
			}
			return apperrors.Storage(stepWrite, err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.Storage(stepWrite, err)
		}
		s.log(ctx).Error("Failed to delete reservation", "id", id, "error", err)
		return nil, err
	}

	s.log(ctx).Info("Reservation deleted successfully", "id", id, "guests", len(snapshot.Guests))
	s.publish(ctx, model.EventReservationDeleted, snapshot)
	return snapshot, nil
}

func (s *reservationService) FindByWindow(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error) {
	checkIn = model.NormalizeTime(checkIn)
	checkOut = model.NormalizeTime(checkOut)
	if checkOut.Before(checkIn) {
		return nil, apperrors.ValidationFailed("invalid search window", []string{"check_out must not be before check_in"})
	}

	reservations, err := s.repo.FindContained(ctx, checkIn, checkOut)
	if err != nil {
		s.log(ctx).Error("Failed to search reservations by window",
			"check_in", checkIn,
			"check_out", checkOut,
			"error", err,
		)
		return nil, apperrors.Storage(stepLookup, err)
	}

	s.log(ctx).Debug("Reservation window search completed", "count", len(reservations))
	return reservations, nil
}

// --- Helpers ---

func (s *reservationService) clock() time.Time {
	return model.NormalizeTime(s.now())
}

func (s *reservationService) log(ctx context.Context) *logger.Logger {
	return s.cfg.Log.WithContext(ctx)
}

func (s *reservationService) load(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.NotFound("Reservation")
	}

	reservation, err := s.repo.FindReservation(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		s.log(ctx).Error("Failed to load reservation", "id", id, "error", err)
		return nil, apperrors.Storage(stepLookup, err)
	}
	return reservation, nil
}

// acquirePoolLock waits at most PoolLockTTL for the pool. The returned
// release is idempotent.
func (s *reservationService) acquirePoolLock(ctx context.Context) (lock.Release, error) {
	lockCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.PoolLockTTL > 0 {
		lockCtx, cancel = context.WithTimeout(ctx, s.cfg.PoolLockTTL)
	}
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, model.DefaultPool)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Timeout("timed out waiting for the reservation pool")
		}
		if errors.Is(err, lock.ErrLockHeld) {
			s.log(ctx).Warn("Pool lock busy", "pool", model.DefaultPool, "error", err)
			return nil, apperrors.Conflict("another reservation for these dates is being processed, please retry")
		}
		return nil, apperrors.Storage(stepLock, err)
	}
	return release, nil
}

// leaseContext bounds the check-and-write section to a share of PoolLockTTL,
// so it ends before an expiring pool lock can pass to another writer.
func (s *reservationService) leaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.PoolLockTTL <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.PoolLockTTL-s.cfg.PoolLockTTL/leaseMarginDivisor)
}

func (s *reservationService) leaseError(ctx, leaseCtx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(leaseCtx.Err(), context.DeadlineExceeded) {
		return apperrors.Timeout("the reservation could not be stored before the pool lock expired, please retry")
	}
	return s.transactionError(err)
}

func (s *reservationService) ensureAvailable(ctx context.Context, checkIn, checkOut time.Time, excludeID string) error {
	conflicts, err := s.checker.FindConflicts(ctx, checkIn, checkOut, excludeID)
	if err != nil {
		return apperrors.Storage(stepAvailability, err)
	}
	if len(conflicts) == 0 {
		return nil
	}

	intervals := make([]map[string]any, 0, len(conflicts))
	for _, c := range conflicts {
		intervals = append(intervals, map[string]any{
			"id":        c.ID,
			"check_in":  c.CheckIn,
			"check_out": c.CheckOut,
		})
	}
	return apperrors.Conflict(conflictMessage).WithDetails(map[string]any{"conflicts": intervals})
}

func (s *reservationService) writeError(err error) error {
	if errors.Is(err, reservationserrors.ErrOverlap) {
		return apperrors.Conflict(conflictMessage)
	}
	return apperrors.Storage(stepWrite, err)
}

// transactionError maps failures raised by the transaction itself (begin,
// commit) rather than by the work inside it. Only writes that can collide
// with another interval go through it.
func (s *reservationService) transactionError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, reservationserrors.ErrOverlap) {
		return apperrors.Conflict(conflictMessage)
	}
	return apperrors.Storage(stepWrite, err)
}

func (s *reservationService) publish(ctx context.Context, eventType string, r *model.Reservation) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := model.NewReservationEvent(eventType, r, s.clock())
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.log(ctx).Warn("Failed to publish reservation event",
			"event", eventType,
			"id", r.ID,
			"error", err,
		)
	}
}

func (s *reservationService) sanitizeInput(input *model.ReservationInput) {
	input.UnitLabel = sanitizer.NormalizeLabel(input.UnitLabel)
	input.CheckIn = model.NormalizeTime(input.CheckIn)
	input.CheckOut = model.NormalizeTime(input.CheckOut)
	for i := range input.Guests {
		input.Guests[i].Name = sanitizer.NormalizeName(input.Guests[i].Name)
		input.Guests[i].Email = sanitizer.NormalizeEmail(input.Guests[i].Email)
	}
}

func (s *reservationService) sanitizeUpdate(update *model.ReservationUpdate) {
	if update.UnitLabel != nil {
		label := sanitizer.NormalizeLabel(*update.UnitLabel)
		update.UnitLabel = &label
	}
	if update.CheckIn != nil {
		checkIn := model.NormalizeTime(*update.CheckIn)
		update.CheckIn = &checkIn
	}
	if update.CheckOut != nil {
		checkOut := model.NormalizeTime(*update.CheckOut)
		update.CheckOut = &checkOut
	}
}

func newReservation(input *model.ReservationInput, ownerID string, now time.Time) *model.Reservation {
	guests := make([]model.Guest, 0, len(input.Guests))
	for _, g := range input.Guests {
		guests = append(guests, model.Guest{Name: g.Name, Email: g.Email})
	}
	return &model.Reservation{
		OwnerID:    ownerID,
		UnitLabel:  input.UnitLabel,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		GuestCount: input.GuestCount,
		Guests:     guests,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func mergeUpdate(existing *model.Reservation, update *model.ReservationUpdate) *model.Reservation {
	merged := *existing
	merged.Guests = append([]model.Guest(nil), existing.Guests...)

	if update.UnitLabel != nil {
		merged.UnitLabel = *update.UnitLabel
	}
	if update.CheckIn != nil && update.CheckOut != nil {
		merged.CheckIn = *update.CheckIn
		merged.CheckOut = *update.CheckOut
	}
	if update.GuestCount != nil {
		merged.GuestCount = *update.GuestCount
	}
	return &merged
}

