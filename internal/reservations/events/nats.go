package events

import (
	"context"
	"encoding/json"
	"fmt"
	"staybook/pkg/model"

	"github.com/nats-io/nats.go"
)

// subjectPublisher is satisfied by *nats.Conn.
type subjectPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

type natsPublisher struct {
	conn    subjectPublisher
	subject string
}

// NewNATSPublisher publishes each event on "<subject>.<event type>". The
// connection belongs to the caller and is not closed here.
func NewNATSPublisher(conn *nats.Conn, subject string) Publisher {
	return &natsPublisher{conn: conn, subject: subject}
}

func (p *natsPublisher) Publish(ctx context.Context, event model.ReservationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event.Type, err)
	}

	msg := nats.NewMsg(p.subject + "." + event.Type)
	msg.Data = data
	msg.Header.Set("Nats-Msg-Id", event.ReservationID+":"+event.Type+":"+event.OccurredAt.Format("20060102T150405.000"))
	msg.Header.Set("Schema-Version", SchemaVersion)
	msg.Header.Set("Source", Source)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *natsPublisher) Close() error {
	return nil
}
