package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// streaming pipeline.
type Metrics struct {
	FilesProcessed  prometheus.Counter
	FilesSkipped    prometheus.Counter
	FeaturesRead    prometheus.Counter
	FeaturesDropped *prometheus.CounterVec // labels: reason={no_entity,date_filter,transform}
	RecordsEmitted  *prometheus.CounterVec // labels: kind={raw,aggregate}
	PipelineRunning prometheus.Gauge

	// Per-file processing metrics.
	FileFeatures           prometheus.Histogram
	FileProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webfet",
			Name:      "files_processed_total",
			Help:      "Total slice files fully streamed.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webfet",
			Name:      "files_skipped_total",
			Help:      "Total slice files skipped as unreadable, malformed, or unprojectable.",
		}),
		FeaturesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webfet",
			Name:      "features_read_total",
			Help:      "Total features surfaced by the source scan.",
		}),
		FeaturesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webfet",
			Name:      "features_dropped_total",
			Help:      "Features excluded from the stream, by reason.",
		}, []string{"reason"}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webfet",
			Name:      "records_emitted_total",
			Help:      "NDJSON records written, by kind.",
		}, []string{"kind"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "webfet",
			Name:      "pipeline_running",
			Help:      "1 while the stream is active, 0 when shut down.",
		}),
		FileFeatures: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webfet",
			Name:      "file_features",
			Help:      "Number of features per slice file.",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webfet",
			Name:      "file_processing_duration_seconds",
			Help:      "Duration of one slice file's parse-transform-emit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesSkipped,
		m.FeaturesRead,
		m.FeaturesDropped,
		m.RecordsEmitted,
		m.PipelineRunning,
		m.FileFeatures,
		m.FileProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesProcessed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "webfet", Name: "files_processed_total"}),
		FilesSkipped:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "webfet", Name: "files_skipped_total"}),
		FeaturesRead:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "webfet", Name: "features_read_total"}),
		FeaturesDropped:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "webfet", Name: "features_dropped_total"}, []string{"reason"}),
		RecordsEmitted:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "webfet", Name: "records_emitted_total"}, []string{"kind"}),
		PipelineRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "webfet", Name: "pipeline_running"}),
		FileFeatures:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "webfet", Name: "file_features"}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "webfet", Name: "file_processing_duration_seconds"}),
	}
}
