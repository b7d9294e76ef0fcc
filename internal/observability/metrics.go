package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/uvgride/grouprides/internal/domain"
)

const namespace = "grouprides"

var (
	GroupsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "groups_created_total", Help: "Group creation attempts by outcome"},
		[]string{"result"},
	)
	JoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "joins_total", Help: "Join attempts by outcome"},
		[]string{"result"},
	)
	LeavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "leaves_total", Help: "Leave attempts by outcome"},
		[]string{"result"},
	)
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "status_transitions_total", Help: "Lifecycle transitions by target status and outcome"},
		[]string{"target", "result"},
	)
	RatingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ratings_total", Help: "Rating submissions by outcome"},
		[]string{"result"},
	)
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Transactional operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_dropped_total", Help: "Notifications discarded because the queue was full"},
	)
	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_failed_total", Help: "Notifications the publisher rejected"},
	)
	RatingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rating_cache_lookups_total", Help: "Rating summary cache lookups by outcome"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result turns an operation error into a low-cardinality metric label.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(domain.ReasonOf(err))
}
