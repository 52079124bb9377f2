package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// importMetrics counts import outcomes. The api (sync imports) and the worker
// (queued imports) each register their own copy.
type importMetrics struct {
	runsTotal     *prometheus.CounterVec
	recordsTotal  *prometheus.CounterVec
	warningsTotal *prometheus.CounterVec
}

func newImportMetrics(registry *prometheus.Registry) importMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bpx",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total import runs by status.",
		},
		[]string{"service", "status"},
	)
	recordsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bpx",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Total records created by imports, by record kind.",
		},
		[]string{"service", "kind"},
	)
	warningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bpx",
			Subsystem: "import",
			Name:      "warnings_total",
			Help:      "Total non-fatal import warnings.",
		},
		[]string{"service"},
	)
	registry.MustRegister(runsTotal, recordsTotal, warningsTotal)

	return importMetrics{
		runsTotal:     runsTotal,
		recordsTotal:  recordsTotal,
		warningsTotal: warningsTotal,
	}
}

// RecordImport counts one finished run. A summary with warnings still counts
// as success.
func (m importMetrics) RecordImport(service string, summary *domain.ImportSummary, err error) {
	if err != nil || summary == nil {
		m.runsTotal.WithLabelValues(service, importStatus(err)).Inc()
		return
	}
	m.runsTotal.WithLabelValues(service, "success").Inc()
	m.recordsTotal.WithLabelValues(service, "profile").Inc()
	m.recordsTotal.WithLabelValues(service, "toolset").Add(float64(summary.ToolsetCount))
	m.recordsTotal.WithLabelValues(service, "tool").Add(float64(summary.ToolCount))
	m.recordsTotal.WithLabelValues(service, "preset").Add(float64(summary.PresetCount))
	if n := len(summary.Warnings); n > 0 {
		m.warningsTotal.WithLabelValues(service).Add(float64(n))
	}
}

func importStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid"
	case domain.IsKind(err, domain.ErrDownload):
		return "download_error"
	case domain.IsKind(err, domain.ErrDocumentParse):
		return "parse_error"
	case domain.IsKind(err, domain.ErrRecordCreate):
		return "record_error"
	default:
		return "error"
	}
}
