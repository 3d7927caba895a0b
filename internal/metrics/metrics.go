// Package metrics exposes Prometheus collectors for the scoring service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the service collectors. A nil *Recorder records nothing.
type Recorder struct {
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	reasonCodes *prometheus.CounterVec
	cache       *prometheus.CounterVec
	batchSize   prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardscore_evaluations_total",
				Help: "Scorecard evaluations by model and outcome.",
			},
			[]string{"model", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardscore_evaluation_duration_seconds",
				Help:    "Time spent evaluating one record.",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"model"},
		),
		reasonCodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardscore_reason_codes_total",
				Help: "Reason codes returned in explanations.",
			},
			[]string{"model", "code"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardscore_evaluator_cache_total",
				Help: "Compiled evaluator cache lookups.",
			},
			[]string{"result"},
		),
		batchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cardscore_batch_size",
				Help:    "Records per batch request.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7),
			},
		),
	}
}

// ObserveEvaluation counts one evaluation and its latency.
func (r *Recorder) ObserveEvaluation(model, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(model, outcome).Inc()
	r.duration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveReasonCodes counts each returned reason code once.
func (r *Recorder) ObserveReasonCodes(model string, codes []string) {
	if r == nil {
		return
	}
	for _, code := range codes {
		r.reasonCodes.WithLabelValues(model, code).Inc()
	}
}

// ObserveCache records an evaluator cache hit or miss.
func (r *Recorder) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// ObserveBatch records the size of a batch request.
func (r *Recorder) ObserveBatch(size int) {
	if r == nil {
		return
	}
	r.batchSize.Observe(float64(size))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
