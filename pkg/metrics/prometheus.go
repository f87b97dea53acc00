package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	refreshRuns    *prometheus.CounterVec
	retrainsTotal  prometheus.Counter
	trainRows      prometheus.Gauge
	predictions    prometheus.Counter
	lastPrediction prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
	lastPrice      prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refreshRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coincast_refresh_runs_total",
				Help: "Total ingestion runs by outcome",
			},
			[]string{"outcome"},
		),
		retrainsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coincast_retrains_total",
				Help: "Total successful model retrains",
			},
		),
		trainRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coincast_training_rows",
				Help: "Rows used by the last successful retrain",
			},
		),
		predictions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coincast_predictions_total",
				Help: "Total forecasts produced",
			},
		),
		lastPrediction: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coincast_last_predicted_price",
				Help: "Most recent predicted price",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coincast_errors_total",
				Help: "Total errors by kind",
			},
			[]string{"kind"},
		),
		lastPrice: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coincast_last_price",
				Help: "Last ingested price",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coincast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRefresh records an ingestion run outcome.
func (r *Recorder) RecordRefresh(outcome string) {
	r.refreshRuns.WithLabelValues(outcome).Inc()
}

// RecordRetrain records a successful retrain and the rows it trained on.
func (r *Recorder) RecordRetrain(rows int) {
	r.retrainsTotal.Inc()
	r.trainRows.Set(float64(rows))
}

// RecordPrediction records a produced forecast.
func (r *Recorder) RecordPrediction(predicted float64) {
	r.predictions.Inc()
	r.lastPrediction.Set(predicted)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last ingested price.
func (r *Recorder) RecordLastPrice(price float64) {
	r.lastPrice.Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
