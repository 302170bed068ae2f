package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	sourceCalls   *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec
	droppedRows   *prometheus.CounterVec
	analyses      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	degraded      *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	lastSpot      *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		sourceCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammadesk_source_calls_total",
				Help: "Calls to external data sources by result",
			},
			[]string{"source", "result"},
		),
		sourceLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gammadesk_source_duration_seconds",
				Help:    "Latency of external data source calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"source"},
		),
		droppedRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammadesk_source_dropped_rows_total",
				Help: "Rows skipped because of missing or invalid fields",
			},
			[]string{"source"},
		),
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammadesk_analyses_total",
				Help: "Analyses run by kind and result",
			},
			[]string{"kind", "result"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gammadesk_analysis_duration_seconds",
				Help:    "Duration of analyses in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		degraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammadesk_model_fallbacks_total",
				Help: "Model fits that fell back to a simpler estimator",
			},
			[]string{"model"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammadesk_cache_lookups_total",
				Help: "Cache lookups by namespace and outcome",
			},
			[]string{"namespace", "outcome"},
		),
		lastSpot: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gammadesk_last_spot",
				Help: "Last spot price seen for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordSourceCall records an external source call.
func (r *Recorder) RecordSourceCall(source string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.sourceCalls.WithLabelValues(source, result).Inc()
	r.sourceLatency.WithLabelValues(source).Observe(d.Seconds())
}

// RecordDroppedRows counts rows skipped for schema drift.
func (r *Recorder) RecordDroppedRows(source string, n int) {
	if n > 0 {
		r.droppedRows.WithLabelValues(source).Add(float64(n))
	}
}

// RecordAnalysis records one analysis run.
func (r *Recorder) RecordAnalysis(kind string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.analyses.WithLabelValues(kind, result).Inc()
	r.latency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordFallback counts a degraded model fit.
func (r *Recorder) RecordFallback(model string) {
	r.degraded.WithLabelValues(model).Inc()
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(namespace string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(namespace, outcome).Inc()
}

// RecordSpot records the last spot price for a symbol.
func (r *Recorder) RecordSpot(symbol string, price float64) {
	r.lastSpot.WithLabelValues(symbol).Set(price)
}
