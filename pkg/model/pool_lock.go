package model

import "time"

// PoolLock is an advisory lock document held while a reservation's
// availability check and write run. Its _id is the pool key, so a second
// writer gets a duplicate key error.
type PoolLock struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
