package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	governorWait     *prometheus.HistogramVec
	governorInFlight *prometheus.GaugeVec
	retries          *prometheus.CounterVec
	retryExhausted   *prometheus.CounterVec
	rowsPersisted    *prometheus.CounterVec
	itemErrors       *prometheus.CounterVec
	runs             *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &Metrics{
		governorWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_governor_wait_seconds",
			Help:    "Time spent waiting for a rate governor permit",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"class"}),
		governorInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ingest_governor_in_flight",
			Help: "Calls currently holding a rate governor permit",
		}, []string{"class"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_retry_attempts_total",
			Help: "Failed attempts that were retried",
		}, []string{"label"}),
		retryExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_retry_exhausted_total",
			Help: "Operations that failed on every attempt",
		}, []string{"label"}),
		rowsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_persisted_total",
			Help: "Rows written per entity",
		}, []string{"entity"}),
		itemErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_item_errors_total",
			Help: "Per-item failures recorded by a workflow",
		}, []string{"workflow"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Finished runs by type and status",
		}, []string{"run_type", "status"}),
	}
}

func (m *Metrics) ObserveGovernorWait(class string, d time.Duration) {
	if m == nil {
		return
	}
	m.governorWait.WithLabelValues(class).Observe(d.Seconds())
}

func (m *Metrics) AddInFlight(class string, delta float64) {
	if m == nil {
		return
	}
	m.governorInFlight.WithLabelValues(class).Add(delta)
}

func (m *Metrics) IncRetry(label string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(label).Inc()
}

func (m *Metrics) IncRetryExhausted(label string) {
	if m == nil {
		return
	}
	m.retryExhausted.WithLabelValues(label).Inc()
}

func (m *Metrics) AddRows(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsPersisted.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) IncItemError(workflow string) {
	if m == nil {
		return
	}
	m.itemErrors.WithLabelValues(workflow).Inc()
}

func (m *Metrics) IncRun(runType, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(runType, status).Inc()
}
