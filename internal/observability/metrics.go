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
	// Download metrics
	BarsFetched    *prometheus.CounterVec
	BarsStored     *prometheus.CounterVec
	DownloadErrors *prometheus.CounterVec
	QuotesReceived prometheus.Counter

	// Latency metrics
	ChartAPILatency  *prometheus.HistogramVec
	QuoteTickLatency prometheus.Histogram

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	RowsCleaned       prometheus.Counter
	SequencesBuilt    prometheus.Counter
	TokensEncoded     prometheus.Counter

	// Training metrics
	EpochsCompleted prometheus.Counter
	TrainLoss       prometheus.Gauge
	ValLoss         prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulDownload prometheus.Gauge
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "nse_market_lab"
	}

	return &Metrics{
		// Download metrics
		BarsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "bars_fetched_total",
			Help:      "Total number of bars fetched from the chart API",
		}, []string{"symbol"}),
		BarsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "bars_stored_total",
			Help:      "Total number of bars stored to the database",
		}, []string{"symbol"}),
		DownloadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "errors_total",
			Help:      "Total number of download errors by symbol",
		}, []string{"symbol"}),
		QuotesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "quotes_received_total",
			Help:      "Total number of live quote ticks received",
		}),

		// Latency metrics
		ChartAPILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "chart_api_latency_seconds",
			Help:      "Chart API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"symbol"}),
		QuoteTickLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "quote_tick_latency_seconds",
			Help:      "Quote tick processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by stage and status",
		}, []string{"stage", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline stage execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		RowsCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_cleaned_total",
			Help:      "Total number of rows retained after cleaning",
		}),
		SequencesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sequences_built_total",
			Help:      "Total number of input/target sequence pairs built",
		}),
		TokensEncoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tokens_encoded_total",
			Help:      "Total number of composite tokens encoded",
		}),

		// Training metrics
		EpochsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "epochs_completed_total",
			Help:      "Total number of training epochs completed",
		}),
		TrainLoss: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "train_loss",
			Help:      "Training loss of the most recent epoch",
		}),
		ValLoss: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "val_loss",
			Help:      "Validation loss of the most recent epoch",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulDownload: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_download_timestamp",
			Help:      "Unix timestamp of last successful download",
		}),
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBarsFetched adds to the fetched bars counter for a symbol.
func RecordBarsFetched(symbol string, n int) {
	DefaultMetrics.BarsFetched.WithLabelValues(symbol).Add(float64(n))
}

// RecordBarsStored adds to the stored bars counter for a symbol.
func RecordBarsStored(symbol string, n int) {
	DefaultMetrics.BarsStored.WithLabelValues(symbol).Add(float64(n))
}

// RecordDownloadError increments the download error counter for a symbol.
func RecordDownloadError(symbol string) {
	DefaultMetrics.DownloadErrors.WithLabelValues(symbol).Inc()
}

// RecordQuoteReceived increments the live quote counter.
func RecordQuoteReceived() {
	DefaultMetrics.QuotesReceived.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline stage run.
func RecordPipelineRun(stage, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordEpoch records a completed training epoch's losses.
func RecordEpoch(trainLoss, valLoss float64) {
	DefaultMetrics.EpochsCompleted.Inc()
	DefaultMetrics.TrainLoss.Set(trainLoss)
	DefaultMetrics.ValLoss.Set(valLoss)
}
