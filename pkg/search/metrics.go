package search

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors updated by the coordinator.
// A nil *Metrics records nothing.
type Metrics struct {
	positions    prometheus.Counter
	batches      prometheus.Counter
	events       *prometheus.CounterVec
	indexEntries prometheus.Gauge
	mergeLatency prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		positions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collider_positions_total",
			Help: "Positions merged into the collision index.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collider_batches_total",
			Help: "Batches received from workers.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collider_events_total",
			Help: "Fingerprint hits by outcome.",
		}, []string{"kind"}),
		indexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collider_index_entries",
			Help: "Distinct fingerprints in the collision index.",
		}),
		mergeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collider_batch_merge_duration_seconds",
			Help:    "Time spent merging one batch.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	reg.MustRegister(m.positions, m.batches, m.events, m.indexEntries, m.mergeLatency)
	return m
}

func (m *Metrics) batch(n, entries int) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.positions.Add(float64(n))
	m.indexEntries.Set(float64(entries))
}

func (m *Metrics) event(k EventKind) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) timer() *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.mergeLatency)
}
