// Package metrics provides Prometheus metrics collection for the survival
// prediction service. It defines the serving, training and live feed metrics
// exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Serving metrics
	Predictions         prometheus.Counter     // Total number of predictions served
	PredictionFailures  prometheus.Counter     // Total number of failed predictions
	PredictionLatency   prometheus.Histogram   // End-to-end prediction latency in seconds
	SurvivalProbability prometheus.Histogram   // Distribution of predicted survival probabilities
	Confidence          *prometheus.CounterVec // Predictions by confidence bucket
	CategoryFallbacks   *prometheus.CounterVec // Unseen categorical values by column
	ModelLoaded         prometheus.Gauge       // 1 when a model is loaded
	ModelAge            prometheus.Gauge       // Seconds since the loaded model was trained

	// Training metrics
	TrainingRuns     prometheus.Counter   // Completed training runs
	TrainingFailures prometheus.Counter   // Failed training runs
	TrainingAccuracy prometheus.Gauge     // Hold-out accuracy of the last run
	TrainingDuration prometheus.Histogram // Wall time of training runs in seconds

	// Live feed metrics
	FeedClients prometheus.Gauge   // Connected prediction feed clients
	FeedDropped prometheus.Counter // Events dropped because the feed was saturated
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of survival predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed survival predictions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		SurvivalProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "survival_probability",
			Help:    "Distribution of predicted survival probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		Confidence: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_confidence_total",
			Help: "Predictions by confidence bucket",
		}, []string{"level"}),
		CategoryFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "category_fallbacks_total",
			Help: "Categorical values unseen during training, by column",
		}, []string{"column"}),
		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "Whether a trained model is loaded (1) or not (0)",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded model in seconds",
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of failed training runs",
		}),
		TrainingAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "training_accuracy",
			Help: "Hold-out accuracy of the most recent training run",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feed_clients",
			Help: "Number of connected prediction feed clients",
		}),
		FeedDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_dropped_total",
			Help: "Prediction events dropped because the feed buffer was full",
		}),
	}
}
