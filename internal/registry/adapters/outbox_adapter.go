// Package adapters binds the registry ports to the chain and outbox packages.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"landledger/internal/outbox"
	"landledger/internal/registry/models"
	"landledger/internal/registry/ports"
)

const aggregateProperty = "property"

// eventPayload is the wire shape consumers receive.
type eventPayload struct {
	EventID    string            `json:"event_id"`
	PropertyID string            `json:"property_id"`
	TransferID *string           `json:"transfer_id,omitempty"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor"`
	Details    map[string]string `json:"details,omitempty"`
	TxHash     string            `json:"transaction_hash,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// OutboxAdapter implements ports.EventPublisher by enqueuing the event in the
// transactional outbox. Enqueue runs on the caller's transaction.
type OutboxAdapter struct {
	store outbox.Store
}

func NewOutboxAdapter(store outbox.Store) ports.EventPublisher {
	return &OutboxAdapter{store: store}
}

func (a *OutboxAdapter) Publish(ctx context.Context, event *models.Event) error {
	entry, err := ToOutboxEntry(event)
	if err != nil {
		return err
	}
	return a.store.Enqueue(ctx, entry)
}

// ToOutboxEntry converts a history event into an outbox row keyed by the
// property label, so a partitioned broker keeps per-property ordering.
func ToOutboxEntry(event *models.Event) (*outbox.Entry, error) {
	label := models.FormatLabel(event.PropertyID)
	payload := eventPayload{
		EventID:    event.ID.String(),
		PropertyID: label,
		Action:     string(event.Action),
		Actor:      event.Actor,
		Details:    event.Details,
		TxHash:     event.TxHash,
		OccurredAt: event.CreatedAt.UTC(),
	}
	if event.TransferID != 0 {
		id := strconv.FormatInt(event.TransferID, 10)
		payload.TransferID = &id
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	return &outbox.Entry{
		ID:            event.ID,
		AggregateType: aggregateProperty,
		AggregateID:   label,
		EventType:     string(event.Action),
		Payload:       body,
		CreatedAt:     event.CreatedAt,
	}, nil
}
