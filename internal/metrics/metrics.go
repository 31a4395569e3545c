package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the pipeline reports to. Stage is one of the pipeline
// stage names (classifier, extractor, parser, matcher).
type Recorder interface {
	ObserveReasoning(stage string, d time.Duration, err error)
	RecordFallback(stage, cause string)
	RecordMatches(flow string, n int)
}

// Collector is the Prometheus Recorder.
type Collector struct {
	reasoningCalls   *prometheus.CounterVec
	reasoningLatency *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	matches          *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reasoningCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shift_swap_reasoning_calls_total",
			Help: "Reasoning service calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		reasoningLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shift_swap_reasoning_latency_seconds",
			Help:    "Reasoning service call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shift_swap_fallbacks_total",
			Help: "Deterministic fallbacks by stage and cause.",
		}, []string{"stage", "cause"}),
		matches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shift_swap_matches",
			Help:    "Number of candidates returned per request.",
			Buckets: []float64{0, 1, 2, 3},
		}, []string{"flow"}),
	}

	reg.MustRegister(c.reasoningCalls, c.reasoningLatency, c.fallbacks, c.matches)

	return c
}

func (c *Collector) ObserveReasoning(stage string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.reasoningCalls.WithLabelValues(stage, outcome).Inc()
	c.reasoningLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) RecordFallback(stage, cause string) {
	c.fallbacks.WithLabelValues(stage, cause).Inc()
}

func (c *Collector) RecordMatches(flow string, n int) {
	c.matches.WithLabelValues(flow).Observe(float64(n))
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveReasoning(string, time.Duration, error) {}
func (Nop) RecordFallback(string, string)                 {}
func (Nop) RecordMatches(string, int)                     {}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
