package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
// Tracks operation outcomes, critical path durations and cache effectiveness.
type Metrics struct {
	Operations         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	PropertyRegistered prometheus.Counter
	TransferCompleted  prometheus.Counter
	CacheLookups       *prometheus.CounterVec
}

// New registers the registry metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_registry_operations_total",
			Help: "Registry operations by name and outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landledger_registry_operation_duration_seconds",
			Help:    "Duration of registry operations including the chain call",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
		}, []string{"operation"}),
		PropertyRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "landledger_properties_registered_total",
			Help: "Total number of properties registered",
		}),
		TransferCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "landledger_transfers_completed_total",
			Help: "Total number of ownership transfers completed",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_property_cache_lookups_total",
			Help: "Property cache lookups by result (hit or miss)",
		}, []string{"result"}),
	}
}

// ObserveOperation records the outcome and duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementPropertyRegistered() {
	if m != nil {
		m.PropertyRegistered.Inc()
	}
}

func (m *Metrics) IncrementTransferCompleted() {
	if m != nil {
		m.TransferCompleted.Inc()
	}
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}
