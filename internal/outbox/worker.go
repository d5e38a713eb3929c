package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Metrics counts worker throughput.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "landledger_outbox_published_total",
			Help: "Outbox entries delivered to the broker",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "landledger_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed and will be retried",
		}),
	}
}

// Worker drains the outbox on a fixed interval. Failed entries are retried on
// the next tick; nothing is dropped.
type Worker struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type WorkerOption func(*Worker)

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(store Store, publisher Publisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		publisher: publisher,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.WarnContext(ctx, "outbox publish failed, will retry", "error", err)
			}
		}
	}
}

// Drain publishes full batches until the outbox is empty or a publish fails.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := w.store.ClaimBatch(ctx, w.batchSize, w.publisher.Publish)
		total += n
		if w.metrics != nil {
			w.metrics.Published.Add(float64(n))
			if err != nil {
				w.metrics.Failures.Inc()
			}
		}
		if err != nil {
			return total, err
		}
		if n < w.batchSize {
			return total, nil
		}
	}
}
