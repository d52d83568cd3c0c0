package workpool

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type poolMetrics struct {
	queued   prometheus.Gauge
	busy     prometheus.Gauge
	rejected prometheus.Counter
}

func newPoolMetrics(name string, reg prometheus.Registerer) (*poolMetrics, error) {
	labels := prometheus.Labels{"pool": name}
	m := &poolMetrics{
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "newsletter",
			Subsystem:   "workpool",
			Name:        "queued_jobs",
			Help:        "Number of jobs waiting for a worker.",
			ConstLabels: labels,
		}),
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "newsletter",
			Subsystem:   "workpool",
			Name:        "busy_workers",
			Help:        "Number of workers currently running a job.",
			ConstLabels: labels,
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "newsletter",
			Subsystem:   "workpool",
			Name:        "rejected_jobs_total",
			Help:        "Number of jobs rejected because the queue was full.",
			ConstLabels: labels,
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.queued, m.busy, m.rejected} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register workpool metrics: %w", err)
		}
	}

	return m, nil
}
