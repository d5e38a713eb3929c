package outbox

import (
	"context"
	"log/slog"
)

// LogPublisher writes entries to the structured log. It is the default when
// no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e *Entry) error {
	p.logger.InfoContext(ctx, "outbox event",
		"event_id", e.ID.String(),
		"event_type", e.EventType,
		"aggregate_type", e.AggregateType,
		"aggregate_id", e.AggregateID,
		"payload", string(e.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
