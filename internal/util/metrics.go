package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "po_batches_submitted_total",
		Help: "Total number of purchase order batches composed and submitted",
	})

	GroupsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "po_groups_created_total",
		Help: "Total number of per-supplier purchase orders accepted upstream",
	})

	GroupsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_groups_failed_total",
		Help: "Total number of per-supplier purchase orders rejected upstream",
	}, []string{"reason"})

	MultiVendorSplitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "po_multi_vendor_splits_total",
		Help: "Total number of carts split across more than one supplier",
	})

	ScorecardRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scorecard_requests_total",
		Help: "Total number of scorecard views served",
	})

	ScoreRecalculationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "score_recalculations_total",
		Help: "Total number of admin-triggered score recalculations",
	})

	VendorSnapshotHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_snapshot_cache_total",
		Help: "Vendor snapshot cache lookups by result",
	}, []string{"result"})

	NotificationsDismissedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dismissed_total",
		Help: "Total number of notifications hidden locally",
	})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Latency of calls to the procurement backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
