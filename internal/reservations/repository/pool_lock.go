package repository

import (
	"context"
	"fmt"
	"staybook/pkg/config"
	"staybook/pkg/lock"
	"staybook/pkg/model"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const PoolLocksCollection = "Reservation_locks"

// mongoPoolLocker takes advisory pool locks by inserting a document keyed by
// the pool. A duplicate key means another writer holds it.
type mongoPoolLocker struct {
	collection *mongo.Collection
	ttl        time.Duration
	now        func() time.Time
}

func NewMongoPoolLocker(cfg *config.Config) lock.TryLocker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPoolLocker{
		collection: db.Collection(PoolLocksCollection),
		ttl:        cfg.PoolLockTTL,
		now:        time.Now,
	}
}

func (l *mongoPoolLocker) TryAcquire(ctx context.Context, key string) (lock.Release, bool, error) {
	now := l.now().UTC()

	// The TTL monitor only runs once a minute; clear stale holders eagerly.
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}}); err != nil {
		return nil, false, fmt.Errorf("failed to clear expired pool lock: %w", err)
	}

	poolLock := model.PoolLock{
		ID:        key,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}

	if _, err := l.collection.InsertOne(ctx, poolLock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire pool lock: %w", err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = l.collection.DeleteOne(releaseCtx, bson.M{"_id": key, "token": poolLock.Token})
	}, true, nil
}
