package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "cocowait"

type metrics struct {
	submitted   prometheus.Counter
	completed   *prometheus.CounterVec
	running     prometheus.Gauge
	outstanding prometheus.Gauge
	sessions    prometheus.Gauge
}

// newMetrics creates the manager's metrics and registers them to reg.
// A nil reg keeps them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_submitted_total",
			Help:      "Number of jobs accepted by the manager.",
		}),
		completed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_completed_total",
			Help:      "Number of jobs finished, by result.",
		}, []string{"result"}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_running",
			Help:      "Number of jobs a worker is running.",
		}),
		outstanding: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_outstanding",
			Help:      "Number of waitable jobs not yet returned by WaitAny.",
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_open",
			Help:      "Number of open sessions.",
		}),
	}
}
