package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts tier activity. A nil *Metrics records nothing.
type Metrics struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	staleServes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_cache_hits_total",
			Help: "Reads answered from a valid cache entry.",
		}, []string{"tier"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_cache_misses_total",
			Help: "Reads that required a refresh.",
		}, []string{"tier"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_cache_refreshes_total",
			Help: "Refresh attempts by result.",
		}, []string{"tier", "result"}),
		staleServes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_cache_stale_served_total",
			Help: "Failed refreshes answered with the previous entry.",
		}, []string{"tier"}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.refreshes, m.staleServes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) hit(tier string) {
	if m != nil {
		m.hits.WithLabelValues(tier).Inc()
	}
}

func (m *Metrics) miss(tier string) {
	if m != nil {
		m.misses.WithLabelValues(tier).Inc()
	}
}

func (m *Metrics) refreshed(tier string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.refreshes.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) staleServed(tier string) {
	if m != nil {
		m.staleServes.WithLabelValues(tier).Inc()
	}
}
