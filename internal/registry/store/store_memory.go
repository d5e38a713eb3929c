// Package store persists properties, transfers, history events and
// registrars. The in-memory store backs development and tests; Postgres is
// used whenever DATABASE_URL is set.
package store

import (
	"context"
	"maps"
	"math/big"
	"sort"
	"sync"

	"landledger/internal/registry/models"
	"landledger/pkg/platform/sentinel"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = sentinel.ErrNotFound

// InMemoryStore keeps everything in maps. RunInTx serializes whole units of
// work, which is the in-memory stand-in for row locks, and rolls them back on
// error. Reads outside RunInTx can see writes that are later rolled back.
type InMemoryStore struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	nextProperty int64
	nextTransfer int64
	properties   map[int64]*models.Property
	transfers    map[int64]*models.Transfer
	events       map[int64][]*models.Event
	registrars   map[string]*models.Registrar
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		properties: make(map[int64]*models.Property),
		transfers:  make(map[int64]*models.Transfer),
		events:     make(map[int64][]*models.Event),
		registrars: make(map[string]*models.Registrar),
	}
}

// snapshot holds the maps as they were when a transaction began. Stored
// values are replaced on write, never mutated, so shallow copies suffice.
// Id counters are not restored; like a Postgres sequence they leave gaps.
type snapshot struct {
	properties map[int64]*models.Property
	transfers  map[int64]*models.Transfer
	events     map[int64][]*models.Event
	registrars map[string]*models.Registrar
}

func (s *InMemoryStore) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		properties: maps.Clone(s.properties),
		transfers:  maps.Clone(s.transfers),
		events:     maps.Clone(s.events),
		registrars: maps.Clone(s.registrars),
	}
}

func (s *InMemoryStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = snap.properties
	s.transfers = snap.transfers
	s.events = snap.events
	s.registrars = snap.registrars
}

// RunInTx runs fn while holding the store-wide transaction lock. Writes made
// by fn are discarded when it returns an error or panics.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.restore(snap)
		}
	}()
	if err := fn(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func copyProperty(p *models.Property) *models.Property {
	c := *p
	return &c
}

func copyTransfer(t *models.Transfer) *models.Transfer {
	c := *t
	if t.Price != nil {
		c.Price = new(big.Int).Set(t.Price)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func (s *InMemoryStore) CreateProperty(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProperty++
	p.ID = s.nextProperty
	p.Version = 1
	s.properties[p.ID] = copyProperty(p)
	return nil
}

func (s *InMemoryStore) GetProperty(_ context.Context, id int64) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProperty(p), nil
}

// LockProperty reads a property for update. Callers hold RunInTx.
func (s *InMemoryStore) LockProperty(ctx context.Context, id int64) (*models.Property, error) {
	return s.GetProperty(ctx, id)
}

func (s *InMemoryStore) UpdateProperty(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.properties[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.Version = stored.Version + 1
	s.properties[p.ID] = copyProperty(p)
	return nil
}

func (s *InMemoryStore) filterProperties(keep func(*models.Property) bool) []*models.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Property, 0)
	for _, p := range s.properties {
		if keep(p) {
			out = append(out, copyProperty(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *InMemoryStore) ListPropertiesByOwner(_ context.Context, owner string) ([]*models.Property, error) {
	return s.filterProperties(func(p *models.Property) bool {
		return p.OwnerAddress == owner
	}), nil
}

func (s *InMemoryStore) ListPropertiesByStatus(_ context.Context, statuses []models.PropertyStatus) ([]*models.Property, error) {
	want := make(map[models.PropertyStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	return s.filterProperties(func(p *models.Property) bool {
		return want[p.Status]
	}), nil
}

// CreateTransfer fails with sentinel.ErrConflict when the property already
// has an open transfer.
func (s *InMemoryStore) CreateTransfer(_ context.Context, t *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transfers {
		if existing.PropertyID == t.PropertyID && existing.Status.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	s.nextTransfer++
	t.ID = s.nextTransfer
	s.transfers[t.ID] = copyTransfer(t)
	return nil
}

func (s *InMemoryStore) GetTransfer(_ context.Context, id int64) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTransfer(t), nil
}

func (s *InMemoryStore) LockTransfer(ctx context.Context, id int64) (*models.Transfer, error) {
	return s.GetTransfer(ctx, id)
}

func (s *InMemoryStore) UpdateTransfer(_ context.Context, t *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[t.ID]; !ok {
		return ErrNotFound
	}
	s.transfers[t.ID] = copyTransfer(t)
	return nil
}

func (s *InMemoryStore) OpenTransfer(_ context.Context, propertyID int64) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transfers {
		if t.PropertyID == propertyID && t.Status.IsOpen() {
			return copyTransfer(t), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ListTransfers(_ context.Context, propertyID int64) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Transfer, 0)
	for _, t := range s.transfers {
		if t.PropertyID == propertyID {
			out = append(out, copyTransfer(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *InMemoryStore) AppendEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	c.Details = make(map[string]string, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	s.events[e.PropertyID] = append(s.events[e.PropertyID], &c)
	return nil
}

// ListEvents returns newest first; ties keep reverse insertion order.
func (s *InMemoryStore) ListEvents(_ context.Context, propertyID int64) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.events[propertyID]
	out := make([]*models.Event, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		c := *src[i]
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) AddRegistrar(_ context.Context, r *models.Registrar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrars[r.Address]; ok {
		return sentinel.ErrConflict
	}
	c := *r
	s.registrars[r.Address] = &c
	return nil
}

func (s *InMemoryStore) RemoveRegistrar(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrars[address]; !ok {
		return ErrNotFound
	}
	delete(s.registrars, address)
	return nil
}

func (s *InMemoryStore) IsRegistrar(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registrars[address]
	return ok, nil
}

func (s *InMemoryStore) ListRegistrars(_ context.Context) ([]*models.Registrar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registrar, 0, len(s.registrars))
	for _, r := range s.registrars {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Stats{
		TotalProperties: int64(len(s.properties)),
		TotalTransfers:  int64(len(s.transfers)),
		ByStatus:        make(map[models.PropertyStatus]int64),
	}
	for _, p := range s.properties {
		stats.ByStatus[p.Status]++
	}
	return stats, nil
}
