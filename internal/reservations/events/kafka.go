package events

import (
	"context"
	"fmt"
	"staybook/pkg/kafka"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

// messageWriter is satisfied by *kafka.Producer.
type messageWriter interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher publishes events keyed by reservation id, so every
// change to one reservation lands on the same partition in order.
func NewKafkaPublisher(producer *kafka.Producer) Publisher {
	return &kafkaPublisher{writer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event model.ReservationEvent) error {
	correlationID, _ := ctx.Value(logger.RequestIDKey).(string)

	msg, err := kafka.NewMessage().
		WithKey(event.ReservationID).
		WithValue(event).
		WithEventType(event.Type).
		WithCorrelationID(correlationID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s message: %w", event.Type, err)
	}

	if err := p.writer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
