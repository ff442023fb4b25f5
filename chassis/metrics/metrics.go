package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "poller"

// Collector groups the poller's prometheus series.
type Collector struct {
	Cycles     *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	Pending    *prometheus.GaugeVec
	Dispatched *prometheus.CounterVec
	Duplicates *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Poll cycle failures by error kind.",
		}, []string{"kind"}),
		Pending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_tasks",
			Help:      "Tasks returned by the last fetch of a task type.",
		}, []string{"task_type"}),
		Dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_total",
			Help:      "Worker processes launched.",
		}, []string{"task_type"}),
		Duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      "Tasks skipped because their key was already dispatched.",
		}, []string{"task_type"}),
	}
}
