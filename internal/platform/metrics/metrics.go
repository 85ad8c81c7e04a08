package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the coding service.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	segmentsRecordedTotal prometheus.Counter
	transcriptionsTotal   prometheus.Counter
	exportsTotal          prometheus.Counter
	projects              prometheus.Gauge
	errorsTotal           prometheus.Counter
}

// New creates and registers Prometheus metrics for the coding service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coding_requests_total",
		Help: "Total number of HTTP requests received",
	})
	segmentsRecordedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coding_segments_recorded_total",
		Help: "Total number of coded segments successfully recorded",
	})
	transcriptionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coding_transcriptions_total",
		Help: "Total number of completed transcription calls",
	})
	exportsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coding_exports_total",
		Help: "Total number of export packages produced",
	})
	projects := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coding_active_projects",
		Help: "Number of stored projects",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coding_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		segmentsRecordedTotal,
		transcriptionsTotal,
		exportsTotal,
		projects,
		errorsTotal,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		segmentsRecordedTotal: segmentsRecordedTotal,
		transcriptionsTotal:   transcriptionsTotal,
		exportsTotal:          exportsTotal,
		projects:              projects,
		errorsTotal:           errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncSegmentsRecorded increments the recorded segments counter.
func (m *Metrics) IncSegmentsRecorded() {
	m.segmentsRecordedTotal.Inc()
}

// IncTranscriptions increments the completed transcriptions counter.
func (m *Metrics) IncTranscriptions() {
	m.transcriptionsTotal.Inc()
}

// IncExports increments the export packages counter.
func (m *Metrics) IncExports() {
	m.exportsTotal.Inc()
}

// SetProjects sets the stored projects gauge.
func (m *Metrics) SetProjects(n int) {
	m.projects.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
