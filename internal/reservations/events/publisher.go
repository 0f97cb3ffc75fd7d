// Package events announces committed reservation lifecycle changes to
// downstream consumers. Publishing is best effort: callers log failures and
// carry on, the reservation store stays the source of truth.
package events

import (
	"context"
	"staybook/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "staybook-reservations"
)

type Publisher interface {
	Publish(ctx context.Context, event model.ReservationEvent) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, model.ReservationEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
