package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transactions *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_chain_transactions_total",
			Help: "Registry contract transactions by method, backend and result",
		}, []string{"method", "backend", "result"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landledger_chain_transaction_duration_seconds",
			Help:    "Time from submission to receipt",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60, 120},
		}, []string{"method", "backend"}),
	}
}

func (m *Metrics) observe(method, backend string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Transactions.WithLabelValues(method, backend, result).Inc()
	m.Duration.WithLabelValues(method, backend).Observe(seconds)
}
