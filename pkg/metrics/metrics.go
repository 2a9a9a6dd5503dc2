// Package metrics defines the Prometheus metric collectors used by the
// ingestion worker and the retriever service, and exposes an HTTP handler
// for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	JobsTotal           *prometheus.CounterVec
	JobDuration         prometheus.Histogram
	JobRetriesTotal     prometheus.Counter
	JobsDeadLettered    prometheus.Counter
	ChunksTotal         *prometheus.CounterVec
	EmbeddingLatency    prometheus.Histogram
	QueueDepth          *prometheus.GaugeVec
	RetrievalsTotal     *prometheus.CounterVec
	RetrievalLatency    prometheus.Histogram
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_jobs_total",
				Help: "Total ingestion jobs by terminal outcome (completed, retry_scheduled, failed).",
			},
			[]string{"outcome"},
		),
		JobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingestion_job_duration_seconds",
				Help:    "Wall-clock duration of a single job attempt.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		JobRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingestion_job_retries_total",
				Help: "Total retry schedules across all jobs.",
			},
		),
		JobsDeadLettered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingestion_jobs_dead_lettered_total",
				Help: "Total jobs moved to the dead letter list.",
			},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_chunks_total",
				Help: "Chunks handled per result (stored, skipped).",
			},
			[]string{"result"},
		),
		EmbeddingLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "embedding_call_duration_seconds",
				Help:    "Embedding gateway call latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ingestion_queue_depth",
				Help: "Number of jobs per queue structure (main, delayed, processing, dead_letter).",
			},
			[]string{"queue"},
		),
		RetrievalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrievals_total",
				Help: "Total retrieval requests by result (ok, empty, not_found, error).",
			},
			[]string{"result"},
		),
		RetrievalLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_duration_seconds",
				Help:    "Retrieval latency in seconds, including the query embedding call.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.JobsTotal,
		m.JobDuration,
		m.JobRetriesTotal,
		m.JobsDeadLettered,
		m.ChunksTotal,
		m.EmbeddingLatency,
		m.QueueDepth,
		m.RetrievalsTotal,
		m.RetrievalLatency,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
