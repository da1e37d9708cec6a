package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "airq_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RunsTotal       prometheus.Counter
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Extract metrics.
	FetchOutcomes     *prometheus.CounterVec // labels: outcome={success,source_rejected,malformed_response,transport}
	FetchDuration     prometheus.Histogram
	ReadingsCollected prometheus.Counter

	TransformErrors prometheus.Counter

	// Load metrics.
	DocumentsStored    prometheus.Counter
	DocumentErrors     prometheus.Counter
	StoreFailures      prometheus.Counter
	DocumentsPublished prometheus.Counter
	PublishFailures    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.LastSuccess,
		m.FetchOutcomes,
		m.FetchDuration,
		m.ReadingsCollected,
		m.TransformErrors,
		m.DocumentsStored,
		m.DocumentErrors,
		m.StoreFailures,
		m.DocumentsPublished,
		m.PublishFailures,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total pipeline runs started.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete collect-transform-upsert run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that reached the store without a batch failure.",
		}),
		FetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "district_fetches_total",
			Help:      "District fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "district_fetch_duration_seconds",
			Help:      "Duration of a single district fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ReadingsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_collected_total",
			Help:      "Total station readings collected from the source.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total readings that could not be turned into documents.",
		}),
		DocumentsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_stored_total",
			Help:      "Total documents accepted by the store.",
		}),
		DocumentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_errors_total",
			Help:      "Total documents rejected by the store.",
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_batch_failures_total",
			Help:      "Total bulk writes that did not complete.",
		}),
		DocumentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_published_total",
			Help:      "Total documents published to the Kafka snapshot topic.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Total snapshot publishes that failed.",
		}),
	}
}
