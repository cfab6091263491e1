package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Relevance pipeline Prometheus metrics.
var (
	DocumentsLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relevance",
			Name:      "documents_loaded_total",
			Help:      "Corpus documents loaded into a dataset",
		},
		[]string{"label"},
	)

	DocumentsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relevance",
			Name:      "documents_skipped_total",
			Help:      "Corpus documents skipped because they failed to parse",
		},
		[]string{"label"},
	)

	FitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relevance",
			Name:      "pipeline_fit_duration_seconds",
			Help:      "Time to fit the vectorizer and forest",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"}, // "train" / "fold"
	)

	ModelScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "relevance",
			Name:      "model_score",
			Help:      "Latest model quality score",
		},
		[]string{"scope", "metric"}, // scope: holdout, cv_mean, cv_std
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relevance",
			Name:      "classifications_total",
			Help:      "Documents classified, by outcome",
		},
		[]string{"classification"},
	)

	LastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "relevance",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
		[]string{"command"},
	)
)

var registered bool

// Register registers the relevance metrics with the default registry. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(DocumentsLoadedTotal)
	prometheus.MustRegister(DocumentsSkippedTotal)
	prometheus.MustRegister(FitDuration)
	prometheus.MustRegister(ModelScore)
	prometheus.MustRegister(ClassificationsTotal)
	prometheus.MustRegister(LastRunTimestamp)
	registered = true
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format. Batch commands call it on exit.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
