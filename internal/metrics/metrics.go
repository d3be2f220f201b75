package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchTicks tracks dispatch loop ticks by outcome (run, skipped)
	DispatchTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_engine_dispatch_ticks_total",
			Help: "Total number of dispatch loop ticks",
		},
		[]string{"outcome"},
	)

	// DispatchTickDuration tracks how long a full tick takes
	DispatchTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_engine_dispatch_tick_duration_seconds",
			Help:    "Dispatch tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ItemsDispatched tracks processed due items by kind and result
	ItemsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_engine_items_dispatched_total",
			Help: "Total number of due items processed",
		},
		[]string{"kind", "result"},
	)

	// SendQueueDepth tracks the current retry queue depth
	SendQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_engine_send_queue_depth",
			Help: "Current number of send tasks in the retry queue",
		},
	)

	// DeliveryAttempts tracks channel delivery attempts by channel and result
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_engine_delivery_attempts_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "result"},
	)

	// SendRetries tracks re-queued send tasks
	SendRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_engine_send_retries_total",
			Help: "Total number of send tasks re-queued for retry",
		},
	)

	// SendTasksDropped tracks tasks dropped after exhausting retries
	SendTasksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_engine_send_tasks_dropped_total",
			Help: "Total number of send tasks dropped after exhausting retries",
		},
	)

	// RateLimitExceeded tracks API rate limit violations
	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_engine_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
	)
)
