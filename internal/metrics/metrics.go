package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks lookup outcomes and request latency of the served protocol.
type Metrics struct {
	Lookups         *prometheus.CounterVec
	Rejected        prometheus.Counter
	RequestDuration *prometheus.HistogramVec
	Records         prometheus.Gauge
}

// New registers every metric on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callerid_lookups_total",
			Help: "Phone number lookups by outcome (hit or miss)",
		}, []string{"outcome"}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "callerid_rejected_writes_total",
			Help: "Write attempts refused by the read-only provider",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callerid_request_duration_seconds",
			Help:    "Duration of provider requests by route",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		Records: f.NewGauge(prometheus.GaugeOpts{
			Name: "callerid_directory_records",
			Help: "Records currently held by the directory",
		}),
	}
}

// ObserveLookup records whether a lookup produced a row.
func (m *Metrics) ObserveLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// IncrementRejected records a refused write.
func (m *Metrics) IncrementRejected() {
	m.Rejected.Inc()
}

// ObserveRequest records the duration of a request on route.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(route string, start time.Time) {
	m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// SetRecords publishes the directory size.
func (m *Metrics) SetRecords(n int) {
	m.Records.Set(float64(n))
}
