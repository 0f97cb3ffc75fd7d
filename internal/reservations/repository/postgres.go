package repository

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "staybook/internal/reservations/errors"
	"staybook/pkg/config"
	pgtx "staybook/pkg/db/postgres"
	"staybook/pkg/model"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
)

const reservationCols = `id::text, owner_id, unit_label, check_in, check_out, guest_count, created_at, updated_at`

const guestCols = `id::text, reservation_id::text, position, name, email`

type postgresReservationRepository struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	txManager pgtx.TransactionManager
}

func NewPostgresReservationRepository(cfg *config.Config) ReservationRepository {
	return &postgresReservationRepository{
		cfg:       cfg,
		pool:      cfg.Client.Postgres,
		txManager: pgtx.NewTransactionManager(cfg.Client.Postgres),
	}
}

func (r *postgresReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, timeout, pgtx.InTransaction(ctx))
}

func (r *postgresReservationRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (
    owner_id, pool, unit_label, check_in, check_out, guest_count, created_at, updated_at
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  RETURNING id::text`

	const gq = `INSERT INTO guests (reservation_id, position, name, email)
  VALUES ($1,$2,$3,$4)
  RETURNING id::text`

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if res.CreatedAt.IsZero() {
		res.CreatedAt = model.NormalizeTime(time.Now())
	}
	if res.UpdatedAt.IsZero() {
		res.UpdatedAt = res.CreatedAt
	}

	conn := pgtx.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, q,
		res.OwnerID, model.DefaultPool, res.UnitLabel,
		res.CheckIn, res.CheckOut, res.GuestCount,
		res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID)
	if err != nil {
		return mapPgError("failed to create reservation", err)
	}

	for i := range res.Guests {
		g := &res.Guests[i]
		g.ReservationID = res.ID
		g.Position = i
		if err := conn.QueryRow(ctx, gq, res.ID, i, g.Name, g.Email).Scan(&g.ID); err != nil {
			return mapPgError("failed to create guests", err)
		}
	}

	return nil
}

func (r *postgresReservationRepository) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = $1`

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	res, err := scanReservation(pgtx.Conn(ctx, r.pool).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	if err := r.loadGuests(ctx, []*model.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *postgresReservationRepository) ListReservations(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
  ORDER BY check_in ASC, id ASC
  LIMIT $1 OFFSET $2`

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	list, err := r.query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := r.loadGuests(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postgresReservationRepository) Count(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM reservations`

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var count int64
	if err := pgtx.Conn(ctx, r.pool).QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *postgresReservationRepository) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
  WHERE pool = $1 AND check_in <= $3 AND check_out >= $2
    AND ($4 = '' OR id::text <> $4)
  ORDER BY check_in ASC`

	if _, err := uuid.Parse(excludeID); err != nil {
		excludeID = ""
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.query(ctx, q, model.DefaultPool, checkIn, checkOut, excludeID)
}

func (r *postgresReservationRepository) FindContained(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
  WHERE check_in >= $1 AND check_out <= $2
  ORDER BY check_in ASC`

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	list, err := r.query(ctx, q, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if err := r.loadGuests(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postgresReservationRepository) UpdateReservation(ctx context.Context, id string, fields model.ReservationFields) error {
	const q = `UPDATE reservations
  SET unit_label = $2, check_in = $3, check_out = $4, guest_count = $5, updated_at = $6
  WHERE id = $1`

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgtx.Conn(ctx, r.pool).Exec(ctx, q, id,
		fields.UnitLabel, fields.CheckIn, fields.CheckOut, fields.GuestCount, fields.UpdatedAt)
	if err != nil {
		return mapPgError("failed to update reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *postgresReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	const q = `DELETE FROM reservations WHERE id = $1`

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgtx.Conn(ctx, r.pool).Exec(ctx, q, id)
	if err != nil {
		return mapPgError("failed to delete reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *postgresReservationRepository) DeleteGuests(ctx context.Context, reservationID string) (int64, error) {
	const q = `DELETE FROM guests WHERE reservation_id = $1`

	if _, err := uuid.Parse(reservationID); err != nil {
		return 0, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, reservationID)
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgtx.Conn(ctx, r.pool).Exec(ctx, q, reservationID)
	if err != nil {
		return 0, mapPgError("failed to delete guests", err)
	}
	return tag.RowsAffected(), nil
}

func (r *postgresReservationRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.txManager.ExecuteTransaction(ctx, fn)
	if err != nil && isConflict(err) && !errors.Is(err, reservationserrors.ErrOverlap) {
		return fmt.Errorf("%w: %w", reservationserrors.ErrOverlap, err)
	}
	return err
}

func (r *postgresReservationRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *postgresReservationRepository) query(ctx context.Context, q string, args ...any) ([]*model.Reservation, error) {
	rows, err := pgtx.Conn(ctx, r.pool).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer rows.Close()

	list := []*model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode reservations: %w", err)
		}
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	return list, nil
}

func (r *postgresReservationRepository) loadGuests(ctx context.Context, list []*model.Reservation) error {
	const q = `SELECT ` + guestCols + ` FROM guests
  WHERE reservation_id::text = ANY($1)
  ORDER BY reservation_id, position`

	if len(list) == 0 {
		return nil
	}

	rows, err := pgtx.Conn(ctx, r.pool).Query(ctx, q, reservationIDs(list))
	if err != nil {
		return fmt.Errorf("failed to find guests: %w", err)
	}
	defer rows.Close()

	var guests []model.Guest
	for rows.Next() {
		var g model.Guest
		if err := rows.Scan(&g.ID, &g.ReservationID, &g.Position, &g.Name, &g.Email); err != nil {
			return fmt.Errorf("failed to decode guests: %w", err)
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to find guests: %w", err)
	}

	attachGuests(list, guests)
	return nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID, &res.OwnerID, &res.UnitLabel,
		&res.CheckIn, &res.CheckOut, &res.GuestCount,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.CheckIn = model.NormalizeTime(res.CheckIn)
	res.CheckOut = model.NormalizeTime(res.CheckOut)
	res.CreatedAt = model.NormalizeTime(res.CreatedAt)
	res.UpdatedAt = model.NormalizeTime(res.UpdatedAt)
	return &res, nil
}

// isConflict reports exclusion-constraint violations and serialization
// failures, both of which mean a concurrent writer claimed the interval.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgExclusionViolation || pgErr.Code == pgSerializationFailure
}

func mapPgError(msg string, err error) error {
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %w", msg, reservationserrors.ErrOverlap, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
