package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tubevault"

// Label values used across metrics.
const (
	SourceCache  = "cache"
	SourceOrigin = "origin"

	StatusOK    = "ok"
	StatusError = "error"

	LayerLocal = "local"
	LayerRedis = "redis"
	LayerStore = "store"

	LookupHit  = "hit"
	LookupMiss = "miss"

	FlightShared = "shared"
	FlightLeader = "leader"

	JobStarted   = "started"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobDuplicate = "duplicate"
)

var (
	// ResolutionsTotal counts resolution requests by media kind, result
	// source and outcome.
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of media resolution requests.",
		},
		[]string{"kind", "source", "status"},
	)

	// AdmissionRejectionsTotal counts rejected requests by reason.
	AdmissionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_rejections_total",
			Help:      "Total number of requests rejected at admission.",
		},
		[]string{"reason"},
	)

	// CacheLookupsTotal counts cache lookups by layer and outcome.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache index lookups by layer.",
		},
		[]string{"layer", "status"},
	)

	// SingleflightRequestsTotal counts coalesced store lookups.
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of store lookups by coalescing result.",
		},
		[]string{"result"},
	)

	// ArchiveJobsTotal counts archival jobs by lifecycle status.
	ArchiveJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_jobs_total",
			Help:      "Total number of archival jobs by status.",
		},
		[]string{"status"},
	)

	// ArchiveJobsInflight tracks currently running archival jobs.
	ArchiveJobsInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_jobs_inflight",
			Help:      "Number of archival jobs currently running.",
		},
	)
)
