// Package outbox implements the transactional outbox: entries are written in
// the same database transaction as the state change that produced them and a
// worker publishes them to the configured broker afterwards.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending or published message.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Publisher delivers an entry to a broker.
type Publisher interface {
	Publish(ctx context.Context, entry *Entry) error
	Close() error
}

// Store persists entries. ClaimBatch hands up to limit unpublished entries,
// oldest first, to publish and marks the ones that succeed. It stops at the
// first publish error and returns it; unpublished entries stay for the next
// claim.
type Store interface {
	Enqueue(ctx context.Context, entry *Entry) error
	ClaimBatch(ctx context.Context, limit int, publish func(ctx context.Context, entry *Entry) error) (int, error)
}
