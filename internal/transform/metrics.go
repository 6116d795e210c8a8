package transform

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds Prometheus metrics for transformations.
type metrics struct {
	skipped    *prometheus.CounterVec // By entity
	transforms *prometheus.CounterVec // By result: ok, error
}

// newMetrics creates and registers the metrics with reg. Collectors already
// registered by another Transformer are shared. It returns nil when reg is nil
// or registration fails.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil // Metrics disabled
	}

	skipped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skgif",
		Subsystem: "transform",
		Name:      "skipped_total",
		Help:      "Number of source entities left out of products",
	}, []string{"entity"}))
	if err != nil {
		return nil
	}

	transforms, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skgif",
		Subsystem: "transform",
		Name:      "records_total",
		Help:      "Number of records transformed by result",
	}, []string{"result"}))
	if err != nil {
		return nil
	}

	return &metrics{skipped: skipped, transforms: transforms}
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *metrics) recordSkip(entity string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(entity).Inc()
}

func (m *metrics) recordTransform(result string) {
	if m == nil {
		return
	}
	m.transforms.WithLabelValues(result).Inc()
}
