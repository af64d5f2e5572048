package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommender Prometheus metrics.
var (
	TrainingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homeswipe",
			Name:      "model_training_runs_total",
			Help:      "Total number of per-user model training runs",
		},
		[]string{"outcome"}, // "trained" / "insufficient_data" / "error"
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "homeswipe",
			Name:      "model_training_duration_seconds",
			Help:      "Model training duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ModelCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "homeswipe",
			Name:      "model_cache_entries",
			Help:      "Number of per-user models held in memory",
		},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homeswipe",
			Name:      "recommendations_total",
			Help:      "Recommendation requests served, by candidate pool source",
		},
		[]string{"pool"}, // "city" / "fallback"
	)
)

var recMetricsRegistered bool

// RegisterRecommenderMetrics registers recommender metrics. Must be called once from main.
func RegisterRecommenderMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(TrainingRunsTotal)
	prometheus.MustRegister(TrainingDuration)
	prometheus.MustRegister(ModelCacheSize)
	prometheus.MustRegister(RecommendationsTotal)
	recMetricsRegistered = true
}
