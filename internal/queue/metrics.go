package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueueEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Total tasks enqueued per type",
		},
		[]string{"type"},
	)
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_processed_total",
			Help: "Total tasks processed grouped by status",
		},
		[]string{"type", "status"},
	)
	QueueDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_task_duration_seconds",
			Help:    "Task handler latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)
)

// MustRegisterMetrics registers the queue collectors, tolerating repeats.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{QueueEnqueuedTotal, QueueProcessedTotal, QueueDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// Enqueued records an enqueued task.
func Enqueued(taskType string) {
	QueueEnqueuedTotal.WithLabelValues(taskType).Inc()
}

// Processed records a handled task.
func Processed(taskType, status string, took time.Duration) {
	QueueProcessedTotal.WithLabelValues(taskType, status).Inc()
	QueueDuration.WithLabelValues(taskType).Observe(took.Seconds())
}
