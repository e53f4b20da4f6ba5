package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyflow_api_requests_total",
		Help: "Total HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studyflow_api_request_duration_seconds",
		Help:    "HTTP API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyflow_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// DatabaseQueryDuration observes gorm operation latency by table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studyflow_db_query_duration_seconds",
		Help:    "Database operation duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts database operation errors.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyflow_db_errors_total",
		Help: "Database operation errors.",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive gauges open connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyflow_db_connections_active",
		Help: "Open database connections.",
	})

	// AnalysisRunsTotal counts orchestrated analyses by resulting status.
	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyflow_analysis_runs_total",
		Help: "Orchestrated adaptive analyses.",
	}, []string{"status"})

	// ConflictsDetectedTotal counts schedule conflicts found by checks.
	ConflictsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyflow_conflicts_detected_total",
		Help: "Schedule conflicts detected.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
