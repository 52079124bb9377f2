package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

type WorkerMetrics struct {
	importMetrics

	registry *prometheus.Registry

	importDuration *prometheus.HistogramVec
	importInFlight prometheus.Gauge
	queueLag       *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bpx",
			Subsystem: "worker",
			Name:      "import_duration_seconds",
			Help:      "Queued import duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	importInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bpx",
			Subsystem: "worker",
			Name:      "import_in_flight",
			Help:      "Number of imports currently running in the worker.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bpx",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between enqueueing an import and the worker starting it.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(importDuration, importInFlight, queueLag)

	return &WorkerMetrics{
		importMetrics:  newImportMetrics(registry),
		registry:       registry,
		importDuration: importDuration,
		importInFlight: importInFlight,
		queueLag:       queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartImport() {
	m.importInFlight.Inc()
}

func (m *WorkerMetrics) FinishImport(service string, duration time.Duration, summary *domain.ImportSummary, err error) {
	m.importInFlight.Dec()
	m.importDuration.WithLabelValues(service, importStatus(err)).Observe(duration.Seconds())
	m.RecordImport(service, summary, err)
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
