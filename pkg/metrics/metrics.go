package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch metrics
	EventsDispatched *prometheus.CounterVec
	DispatchLatency  prometheus.Histogram
	DeliveryOutcomes *prometheus.CounterVec

	// Broadcast metrics
	BroadcastBatches  prometheus.Counter
	BroadcastMessages prometheus.Counter

	// Queue metrics
	QueueEventsConsumed prometheus.Counter
	QueueEventsInvalid  prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Total number of notification events dispatched",
		}, []string{"kind", "result"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one notification event",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		DeliveryOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_outcomes_total",
			Help:      "Per-destination delivery outcomes",
		}, []string{"platform", "status"}),
		BroadcastBatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_batches_total",
			Help:      "Total number of bulk push batches submitted",
		}),
		BroadcastMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Total number of messages sent through the bulk path",
		}),
		QueueEventsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_events_consumed_total",
			Help:      "Total number of notification events consumed from the broker",
		}),
		QueueEventsInvalid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_events_invalid_total",
			Help:      "Total number of broker payloads that failed to decode",
		}),
	}
}
