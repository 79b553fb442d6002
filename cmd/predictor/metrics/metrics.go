// Package metrics provides Prometheus instrumentation for the predictor.
//
// Metrics exposed:
//   - ridewise_predict_seconds: Histogram of end-to-end prediction latency
//   - ridewise_predicted_value: Histogram of returned predictions (rentals)
//   - ridewise_predictions_total: Counter of successful predictions
//   - ridewise_errors_total: Counter of failed predictions by kind
//   - ridewise_model_info: Gauge set to 1 for the regressor serving a variant
//
// All metrics carry the variant label (daily or hourly).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor. It implements
// prediction.Observer.
type Metrics struct {
	PredictSeconds   *prometheus.HistogramVec
	PredictedValue   *prometheus.HistogramVec
	PredictionsTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	ModelInfo        *prometheus.GaugeVec
}

// New creates the metrics and registers them with reg. A nil reg uses the
// default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PredictSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ridewise_predict_seconds",
			Help:    "Time spent validating, assembling and scoring a prediction",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),

		PredictedValue: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ridewise_predicted_value",
			Help:    "Predicted bike rentals returned to callers",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"variant"}),

		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ridewise_predictions_total",
			Help: "Total number of successful predictions",
		}, []string{"variant"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ridewise_errors_total",
			Help: "Total number of failed predictions by kind",
		}, []string{"variant", "kind"}),

		ModelInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ridewise_model_info",
			Help: "Regressor serving each variant (value is always 1)",
		}, []string{"variant", "model"}),
	}
}

// ObservePrediction records a successful prediction.
func (m *Metrics) ObservePrediction(variant string, d time.Duration, value float64) {
	m.PredictSeconds.WithLabelValues(variant).Observe(d.Seconds())
	m.PredictedValue.WithLabelValues(variant).Observe(value)
	m.PredictionsTotal.WithLabelValues(variant).Inc()
}

// ObserveError records a failed prediction.
func (m *Metrics) ObserveError(variant, kind string) {
	m.ErrorsTotal.WithLabelValues(variant, kind).Inc()
}

// SetModel records which regressor serves variant.
func (m *Metrics) SetModel(variant, model string) {
	m.ModelInfo.DeletePartialMatch(prometheus.Labels{"variant": variant})
	m.ModelInfo.WithLabelValues(variant, model).Set(1)
}
