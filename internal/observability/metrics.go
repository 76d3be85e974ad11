// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	SyncRunsTotal      *prometheus.CounterVec
	SyncDuration       prometheus.Histogram
	ObjectsFetched     prometheus.Counter
	ObjectsUpserted    prometheus.Counter
	ObjectsFailed      prometheus.Counter
	ApproachesStored   prometheus.Counter
	LastSuccessfulSync prometheus.Gauge

	// Scoring metrics
	AssessmentsTotal    *prometheus.CounterVec
	AssessmentsDegraded prometheus.Counter
	ScoreDistribution   prometheus.Histogram

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StreamClients       prometheus.Gauge
	AlertsPublished     prometheus.Counter

	// Feed client metrics
	FeedCallLatency *prometheus.HistogramVec
	FeedCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "neo_tracker"
	}

	return &Metrics{
		SyncRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of feed sync runs by status",
		}, []string{"status"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of feed sync runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ObjectsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "objects_fetched_total",
			Help:      "Total number of NEO objects fetched from the feed",
		}),
		ObjectsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "objects_upserted_total",
			Help:      "Total number of NEO objects written to storage",
		}),
		ObjectsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "objects_failed_total",
			Help:      "Total number of NEO objects that failed to process",
		}),
		ApproachesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "approaches_stored_total",
			Help:      "Total number of close approaches written to storage",
		}),
		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful sync",
		}),

		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "assessments_total",
			Help:      "Total number of risk assessments by level",
		}, []string{"level"}),
		AssessmentsDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "assessments_degraded_total",
			Help:      "Total number of assessments that produced a degraded placeholder",
		}),
		ScoreDistribution: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "score",
			Help:      "Distribution of computed risk scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Current number of connected alert stream clients",
		}),
		AlertsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "alerts_published_total",
			Help:      "Total number of hazard alerts published to the stream",
		}),

		FeedCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "call_duration_seconds",
			Help:      "NeoWs API call latency by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		FeedCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "call_errors_total",
			Help:      "NeoWs API call errors by endpoint",
		}, []string{"endpoint"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Database query errors by database and operation",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSyncRun records a completed sync run.
func RecordSyncRun(status string, durationSeconds float64) {
	DefaultMetrics.SyncRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SyncDuration.Observe(durationSeconds)
}

// RecordObjectsFetched adds to the fetched objects counter.
func RecordObjectsFetched(n int) {
	DefaultMetrics.ObjectsFetched.Add(float64(n))
}

// RecordObjectUpserted increments the upserted objects counter.
func RecordObjectUpserted() {
	DefaultMetrics.ObjectsUpserted.Inc()
}

// RecordObjectFailed increments the failed objects counter.
func RecordObjectFailed() {
	DefaultMetrics.ObjectsFailed.Inc()
}

// RecordApproachesStored adds to the stored approaches counter.
func RecordApproachesStored(n int) {
	DefaultMetrics.ApproachesStored.Add(float64(n))
}

// MarkSyncSuccess sets the last successful sync timestamp.
func MarkSyncSuccess(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulSync.Set(unixSeconds)
}

// RecordAssessment records a completed risk assessment.
func RecordAssessment(level string, score float64) {
	DefaultMetrics.AssessmentsTotal.WithLabelValues(level).Inc()
	DefaultMetrics.ScoreDistribution.Observe(score)
}

// RecordDegradedAssessment increments the degraded assessments counter.
func RecordDegradedAssessment() {
	DefaultMetrics.AssessmentsDegraded.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route, status string, durationSeconds float64) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

// StreamClientConnected adjusts the connected stream clients gauge.
func StreamClientConnected(delta int) {
	DefaultMetrics.StreamClients.Add(float64(delta))
}

// RecordAlertPublished increments the published alerts counter.
func RecordAlertPublished() {
	DefaultMetrics.AlertsPublished.Inc()
}

// RecordFeedCall records a NeoWs API call.
func RecordFeedCall(endpoint string, seconds float64, err error) {
	DefaultMetrics.FeedCallLatency.WithLabelValues(endpoint).Observe(seconds)
	if err != nil {
		DefaultMetrics.FeedCallErrors.WithLabelValues(endpoint).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
