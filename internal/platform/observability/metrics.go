package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_messages_seen_total",
		Help: "The total number of inbound messages observed by the monitor",
	})

	LinksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_links_enqueued_total",
		Help: "The total number of links pushed onto the work queue",
	})

	LinksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_links_skipped_total",
		Help: "The total number of links skipped because their message was already processed",
	})

	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_pipeline_outcomes_total",
		Help: "Terminal pipeline outcomes by status and failing stage",
	}, []string{"status", "stage"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curator_queue_depth",
		Help: "Number of links waiting in the work queue",
	})
)
