package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidwar_bids_accepted_total",
			Help: "Total number of bid mutations accepted, by operation",
		},
		[]string{"operation"},
	)

	BidsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidwar_bids_rejected_total",
			Help: "Total number of bid mutations refused, by operation and error code",
		},
		[]string{"operation", "code"},
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bidwar_rank_duration_seconds",
			Help:    "Duration of a project rank recomputation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bidwar_subscribers",
			Help: "Number of live project subscriptions",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidwar_events_published_total",
			Help: "Total number of events published, by event type",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bidwar_events_dropped_total",
			Help: "Total number of events dropped because a subscriber channel was full",
		},
	)
)
