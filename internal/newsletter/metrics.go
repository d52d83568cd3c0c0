package newsletter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type dispatchMetrics struct {
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
}

func newDispatchMetrics(reg prometheus.Registerer) (*dispatchMetrics, error) {
	m := &dispatchMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "broadcast",
			Name:      "deliveries_total",
			Help:      "Number of newsletter deliveries by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsletter",
			Subsystem: "broadcast",
			Name:      "duration_seconds",
			Help:      "Time it took to deliver an issue to all recipients.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.deliveries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register broadcast metrics: %w", err)
		}
	}

	return m, nil
}
