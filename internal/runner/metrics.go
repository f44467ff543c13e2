package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	taskRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actorflow",
			Name:      "task_runs_total",
			Help:      "Task calls by task type and final state.",
		},
		[]string{"type", "state"},
	)

	taskRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actorflow",
			Name:      "task_retries_total",
			Help:      "Executor attempts beyond the first.",
		},
		[]string{"type"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "actorflow",
			Name:      "task_duration_seconds",
			Help:      "Wall time of task calls including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		},
		[]string{"type"},
	)
)

func init() {
	metrics.Registry.MustRegister(taskRunsTotal, taskRetriesTotal, taskDuration)
}
