package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvchat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csvchat_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvchat_submissions_total",
			Help: "Chat submissions by outcome status.",
		},
		[]string{"status"},
	)
	executionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvchat_execution_errors_total",
			Help: "Failed SQL executions by error kind.",
		},
		[]string{"kind"},
	)
	generationLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "csvchat_generation_latency_ms",
			Help:    "SQL generation latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
	)
	executionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "csvchat_execution_latency_ms",
			Help:    "SQL execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 1000, 5000},
		},
	)
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvchat_uploads_total",
			Help: "CSV uploads by result.",
		},
		[]string{"result"},
	)
	liveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "csvchat_live_sessions",
			Help: "Sessions currently held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		submissionsTotal,
		executionErrorsTotal,
		generationLatencyMs,
		executionLatencyMs,
		uploadsTotal,
		liveSessions,
	)
}

func ObserveSubmission(status string) {
	submissionsTotal.WithLabelValues(status).Inc()
}

func ObserveGeneration(elapsed time.Duration) {
	generationLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveExecution(errKind string, elapsed time.Duration) {
	executionLatencyMs.Observe(float64(elapsed.Milliseconds()))
	if errKind != "" {
		executionErrorsTotal.WithLabelValues(errKind).Inc()
	}
}

func ObserveUpload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	uploadsTotal.WithLabelValues(result).Inc()
}

func SetLiveSessions(n int) {
	if n < 0 {
		n = 0
	}
	liveSessions.Set(float64(n))
}
