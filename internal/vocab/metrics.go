package vocab

import "github.com/prometheus/client_golang/prometheus"

// cacheMetrics holds Prometheus metrics for the vocabulary cache.
type cacheMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	fetches     *prometheus.CounterVec // By language
	fetchErrors *prometheus.CounterVec // By language
}

// newCacheMetrics creates and registers cache metrics with reg.
func newCacheMetrics(reg prometheus.Registerer) (*cacheMetrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skgif",
			Subsystem: "vocab",
			Name:      "cache_hits_total",
			Help:      "Number of Ensure calls answered from a fresh cached vocabulary",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skgif",
			Subsystem: "vocab",
			Name:      "cache_misses_total",
			Help:      "Number of Ensure calls that found the vocabulary missing or expired",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skgif",
			Subsystem: "vocab",
			Name:      "fetches_total",
			Help:      "Number of vocabulary downloads",
		}, []string{"language"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skgif",
			Subsystem: "vocab",
			Name:      "fetch_errors_total",
			Help:      "Number of failed vocabulary downloads",
		}, []string{"language"}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.fetches, m.fetchErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *cacheMetrics) recordHit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *cacheMetrics) recordMiss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *cacheMetrics) recordFetch(language string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(language).Inc()
	if err != nil {
		m.fetchErrors.WithLabelValues(language).Inc()
	}
}
