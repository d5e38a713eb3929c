package nonce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"landledger/pkg/platform/sentinel"
)

type entry struct {
	nonce     string
	expiresAt time.Time
}

// InMemoryStore is used when no Redis is configured. Expired entries are
// dropped lazily on access.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *InMemoryStore) Put(_ context.Context, address, nonce string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[address] = entry{nonce: nonce, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, address string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[address]
	delete(s.entries, address)
	if !ok || !s.now().Before(e.expiresAt) {
		return "", fmt.Errorf("nonce not found: %w", sentinel.ErrNotFound)
	}
	return e.nonce, nil
}
