package repository

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "staybook/internal/reservations/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	ReservationsCollection = "Reservations"
	GuestsCollection       = "Guests"
)

type mongoReservationRepository struct {
	cfg          *config.Config
	client       *mongo.Client
	reservations *mongo.Collection
	guests       *mongo.Collection
	txManager    mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:          cfg,
		client:       cfg.Client.Mongo,
		reservations: db.Collection(ReservationsCollection),
		guests:       db.Collection(GuestsCollection),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	_, inTx := ctx.(mongo.SessionContext)
	return withTimeout(ctx, timeout, inTx)
}

func (r *mongoReservationRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if res.CreatedAt.IsZero() {
		res.CreatedAt = model.NormalizeTime(time.Now())
	}
	if res.UpdatedAt.IsZero() {
		res.UpdatedAt = res.CreatedAt
	}

	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":         oid,
		"owner_id":    res.OwnerID,
		"unit_label":  res.UnitLabel,
		"check_in":    res.CheckIn,
		"check_out":   res.CheckOut,
		"guest_count": res.GuestCount,
		"created_at":  res.CreatedAt,
		"updated_at":  res.UpdatedAt,
	}
	if _, err := r.reservations.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	res.ID = oid.Hex()

	if len(res.Guests) == 0 {
		return nil
	}

	docs := make([]any, 0, len(res.Guests))
	for i := range res.Guests {
		g := &res.Guests[i]
		goid := primitive.NewObjectID()
		g.ID = goid.Hex()
		g.ReservationID = res.ID
		g.Position = i
		docs = append(docs, bson.M{
			"_id":            goid,
			"reservation_id": g.ReservationID,
			"position":       g.Position,
			"name":           g.Name,
			"email":          g.Email,
		})
	}
	if _, err := r.guests.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create guests: %w", err)
	}

	return nil
}

func (r *mongoReservationRepository) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var res model.Reservation
	err = r.reservations.FindOne(ctx, bson.M{"_id": objectID}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	list := []*model.Reservation{&res}
	if err := r.loadGuests(ctx, list); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *mongoReservationRepository) ListReservations(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "check_in", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	list, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	if err := r.loadGuests(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *mongoReservationRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.reservations.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time, excludeID string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"check_in":  bson.M{"$lte": checkOut},
		"check_out": bson.M{"$gte": checkIn},
	}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}

	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
}

func (r *mongoReservationRepository) FindContained(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"check_in":  bson.M{"$gte": checkIn},
		"check_out": bson.M{"$lte": checkOut},
	}

	list, err := r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	if err := r.loadGuests(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *mongoReservationRepository) UpdateReservation(ctx context.Context, id string, fields model.ReservationFields) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"unit_label":  fields.UnitLabel,
			"check_in":    fields.CheckIn,
			"check_out":   fields.CheckOut,
			"guest_count": fields.GuestCount,
			"updated_at":  fields.UpdatedAt,
		},
	}

	result, err := r.reservations.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	result, err := r.reservations.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if result.DeletedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) DeleteGuests(ctx context.Context, reservationID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.guests.DeleteMany(ctx, bson.M{"reservation_id": reservationID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete guests: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoReservationRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *mongoReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Reservation, error) {
	cursor, err := r.reservations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	list := []*model.Reservation{}
	if err = cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return list, nil
}

func (r *mongoReservationRepository) loadGuests(ctx context.Context, list []*model.Reservation) error {
	if len(list) == 0 {
		return nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "reservation_id", Value: 1}, {Key: "position", Value: 1}})
	cursor, err := r.guests.Find(ctx, bson.M{"reservation_id": bson.M{"$in": reservationIDs(list)}}, opts)
	if err != nil {
		return fmt.Errorf("failed to find guests: %w", err)
	}
	defer cursor.Close(ctx)

	var guests []model.Guest
	if err = cursor.All(ctx, &guests); err != nil {
		return fmt.Errorf("failed to decode guests: %w", err)
	}

	attachGuests(list, guests)
	return nil
}
