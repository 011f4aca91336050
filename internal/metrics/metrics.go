package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "licensor",
		Name:      "validation_decisions_total",
		Help:      "Validation decisions by outcome.",
	}, []string{"outcome"})

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "licensor",
		Name:      "validation_duration_seconds",
		Help:      "Time spent producing a validation decision.",
		Buckets:   prometheus.DefBuckets,
	})

	ValidationTouchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "licensor",
		Name:      "validation_touch_failures_total",
		Help:      "Failed updates of a license's validation counter.",
	})

	UsageRecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "licensor",
		Name:      "usage_records_dropped_total",
		Help:      "Usage records dropped because the queue was full.",
	})

	UsageRecordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "licensor",
		Name:      "usage_records_failed_total",
		Help:      "Usage records that could not be written.",
	})

	UsageRecordsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "licensor",
		Name:      "usage_records_archived_total",
		Help:      "Usage records moved to the archive and deleted.",
	})

	SubscriptionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "licensor",
		Name:      "subscription_events_total",
		Help:      "Billing events by result (applied, stale, duplicate, ignored, failed).",
	}, []string{"result"})

	DashboardGauges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "licensor",
		Name:      "dashboard",
		Help:      "Latest dashboard aggregates.",
	}, []string{"stat"})
)
