package outbox

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore backs development runs without a database.
type InMemoryStore struct {
	claimMu sync.Mutex

	mu      sync.Mutex
	entries []*Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Enqueue(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	s.entries = append(s.entries, &c)
	return nil
}

func (s *InMemoryStore) pending(limit int) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, limit)
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *InMemoryStore) ClaimBatch(ctx context.Context, limit int, publish func(ctx context.Context, e *Entry) error) (int, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	n := 0
	for _, e := range s.pending(limit) {
		c := *e
		if err := publish(ctx, &c); err != nil {
			return n, err
		}
		now := time.Now()
		s.mu.Lock()
		e.PublishedAt = &now
		s.mu.Unlock()
		n++
	}
	return n, nil
}

// Pending returns the number of unpublished entries.
func (s *InMemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.PublishedAt == nil {
			n++
		}
	}
	return n
}
