package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records coordinator activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	requests *prometheus.CounterVec // by outcome
	inFlight prometheus.Gauge
	latency  *prometheus.HistogramVec
	rows     prometheus.Counter
}

// Request outcomes.
const (
	OutcomeIssued       = "issued"
	OutcomeDeduplicated = "deduplicated"
	OutcomeApplied      = "applied"
	OutcomeStale        = "stale"
	OutcomeFailed       = "failed"
)

// NewMetrics creates the coordinator metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "filescope_range_requests_total",
			Help: "Range requests by outcome",
		}, []string{"outcome"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "filescope_range_requests_in_flight",
			Help: "Range requests issued and not yet answered",
		}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filescope_range_request_duration_seconds",
			Help:    "Latency of range requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		rows: f.NewCounter(prometheus.CounterOpts{
			Name: "filescope_rows_loaded_total",
			Help: "Rows written into the window store",
		}),
	}
}

func (m *Metrics) issued() {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(OutcomeIssued).Inc()
	m.inFlight.Inc()
}

func (m *Metrics) deduplicated() {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(OutcomeDeduplicated).Inc()
}

// answered is called once per response, stale or not.
func (m *Metrics) answered(outcome string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.inFlight.Dec()
	m.latency.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) loaded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.Add(float64(n))
}
