package kafka

import (
	"context"
	"staybook/pkg/logger"
	"time"
)

// LoggingMiddleware logs every publish with its outcome and duration.
func LoggingMiddleware(log *logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		args := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			log.WithContext(ctx).Warn("Failed to publish kafka message", append(args, "error", err)...)
			return err
		}
		log.WithContext(ctx).Debug("Published kafka message", args...)
		return nil
	}
}
