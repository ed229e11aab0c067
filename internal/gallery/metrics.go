package gallery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics describes aggregation runs. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	items    prometheus.Gauge
	drops    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_aggregations_total",
			Help: "Aggregation runs by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gallery_aggregation_duration_seconds",
			Help:    "Wall time of one aggregation run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gallery_items",
			Help: "Items returned by the last successful aggregation.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_items_dropped_total",
			Help: "Files left out because their link grant or download failed.",
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.duration, m.items, m.drops} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) aggregated(ok bool, took time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(took.Seconds())
}

func (m *Metrics) setItems(n int) {
	if m != nil {
		m.items.Set(float64(n))
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.drops.Inc()
	}
}
