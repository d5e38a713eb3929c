package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"landledger/internal/platform/middleware"
	"landledger/internal/registry/metrics"
	"landledger/internal/registry/models"
	"landledger/internal/registry/ports"
	"landledger/internal/registry/store"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/requestcontext"
)

type Store interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	LockProperty(ctx context.Context, id int64) (*models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	ListPropertiesByOwner(ctx context.Context, owner string) ([]*models.Property, error)
	ListPropertiesByStatus(ctx context.Context, statuses []models.PropertyStatus) ([]*models.Property, error)

	CreateTransfer(ctx context.Context, t *models.Transfer) error
	GetTransfer(ctx context.Context, id int64) (*models.Transfer, error)
	LockTransfer(ctx context.Context, id int64) (*models.Transfer, error)
	UpdateTransfer(ctx context.Context, t *models.Transfer) error
	OpenTransfer(ctx context.Context, propertyID int64) (*models.Transfer, error)
	ListTransfers(ctx context.Context, propertyID int64) ([]*models.Transfer, error)

	AppendEvent(ctx context.Context, e *models.Event) error
	ListEvents(ctx context.Context, propertyID int64) ([]*models.Event, error)

	AddRegistrar(ctx context.Context, r *models.Registrar) error
	RemoveRegistrar(ctx context.Context, address string) error
	IsRegistrar(ctx context.Context, address string) (bool, error)
	ListRegistrars(ctx context.Context) ([]*models.Registrar, error)

	Stats(ctx context.Context) (*models.Stats, error)
}

// TxRunner provides the transactional boundary for registry mutations.
// Store calls made with the ctx passed to fn join the transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SystemActor is recorded on events produced without a caller, such as seeding.
const SystemActor = "system"

// Service enforces the property and transfer state machines. The store is
// the source of truth; every mutation is notarized on the ledger inside the
// same transaction so a chain failure leaves no partial change behind.
type Service struct {
	store   Store
	tx      TxRunner
	ledger  ports.Ledger
	events  ports.EventPublisher
	cache   ports.PropertyCache
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	reads   singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

func WithCache(cache ports.PropertyCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func New(st Store, tx TxRunner, ledger ports.Ledger, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("registry store is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	s := &Service{
		store:  st,
		tx:     tx,
		ledger: ledger,
		tracer: otel.Tracer("landledger/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// caller returns the authenticated address or an unauthorized error.
func (s *Service) caller(ctx context.Context) (string, error) {
	raw := requestcontext.CallerAddress(ctx)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	addr, err := models.NormalizeAddress(raw)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid caller address")
	}
	return addr, nil
}

func (s *Service) requireRegistrar(ctx context.Context) (string, error) {
	addr, err := s.caller(ctx)
	if err != nil {
		return "", err
	}
	ok, err := s.store.IsRegistrar(ctx, addr)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeForbidden, "caller is not a registrar")
	}
	return addr, nil
}

// mutate runs fn in a transaction under a span and records the outcome.
func (s *Service) mutate(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "registry."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	err := s.tx.RunInTx(ctx, fn)
	if err != nil {
		err = txError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.Message(err))
	}
	s.observe(op, start, err)
	return err
}

func (s *Service) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.ObserveOperation(op, outcome, start)
}

func txError(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry transaction aborted")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry transaction failed")
}

func ledgerError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "chain transaction timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeUpstream, "chain transaction failed")
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
}

// record appends the history event and hands it to the publisher in the same
// transaction.
func (s *Service) record(ctx context.Context, e *models.Event) error {
	if err := s.store.AppendEvent(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record history")
	}
	if s.events == nil {
		return nil
	}
	if err := s.events.Publish(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue event")
	}
	return nil
}

func (s *Service) loadProperty(ctx context.Context, id int64) (*models.Property, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, id); ok {
			s.metrics.ObserveCacheLookup(true)
			return p, nil
		}
		s.metrics.ObserveCacheLookup(false)
	}

	// The flight is shared: one caller cancelling must not fail the others.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.reads.Do(strconv.FormatInt(id, 10), func() (any, error) {
		p, err := s.store.GetProperty(flightCtx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(flightCtx, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, notFoundOr(err, "property")
	}
	shared := v.(*models.Property)
	p := *shared
	return &p, nil
}

func (s *Service) propertyByLabel(ctx context.Context, label string) (*models.Property, error) {
	id, err := models.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	return s.loadProperty(ctx, id)
}

// refresh writes committed rows to the cache. The cache keeps the highest
// version it has seen, so a slower read of an older row cannot replace them.
func (s *Service) refresh(ctx context.Context, props ...*models.Property) {
	if s.cache == nil {
		return
	}
	for _, p := range props {
		if p != nil {
			s.cache.Set(ctx, p)
		}
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

// Stats summarises the registry.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry stats")
	}
	return stats, nil
}
