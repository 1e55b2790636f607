// Package metrics exposes Prometheus collectors for the ingestion and
// cleaning pipeline.
//
// Collectors are registered on a caller-provided registry so tests and
// multiple servers in one process do not collide on the default registry.
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	m.ObserveLoad("csv", "ok")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mathe"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Loads            *prometheus.CounterVec
	SkippedRows      prometheus.Counter
	Latin1Fallbacks  prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	ColumnsDropped   prometheus.Counter
	CleaningWarnings *prometheus.CounterVec
	Duration         *prometheus.HistogramVec
	ActiveJobs       prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_loads_total",
			Help:      "Files loaded, by format and outcome.",
		}, []string{"format", "outcome"}),
		SkippedRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_skipped_rows_total",
			Help:      "CSV rows skipped for having the wrong number of fields.",
		}),
		Latin1Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_latin1_fallbacks_total",
			Help:      "CSV files decoded as ISO-8859-1 after failing UTF-8.",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cache_lookups_total",
			Help:      "Load cache lookups, by result.",
		}, []string{"result"}),
		ColumnsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clean_columns_dropped_total",
			Help:      "Columns removed for having too many missing values.",
		}),
		CleaningWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clean_warnings_total",
			Help:      "Warnings raised while cleaning, by code.",
		}, []string{"code"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		ActiveJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Pipeline runs currently holding a slot.",
		}),
	}
}

// ObserveLoad counts a load attempt.
func (m *Metrics) ObserveLoad(format, outcome string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(format, outcome).Inc()
}

// ObserveReport records what the parser reported for a successful load.
func (m *Metrics) ObserveReport(skipped int, latin1 bool) {
	if m == nil {
		return
	}
	m.SkippedRows.Add(float64(skipped))
	if latin1 {
		m.Latin1Fallbacks.Inc()
	}
}

// ObserveCache counts a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveClean records the outcome of a cleaning run.
func (m *Metrics) ObserveClean(dropped int, warnings []string) {
	if m == nil {
		return
	}
	m.ColumnsDropped.Add(float64(dropped))
	for _, code := range warnings {
		m.CleaningWarnings.WithLabelValues(code).Inc()
	}
}

// Since records the time elapsed since start for a stage.
func (m *Metrics) Since(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// JobStarted and JobFinished track slots held by pipeline runs.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.ActiveJobs.Inc()
}

func (m *Metrics) JobFinished() {
	if m == nil {
		return
	}
	m.ActiveJobs.Dec()
}
