// Package metrics exposes pipeline counters and gauges for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wellbeing"

// Sample outcomes
const (
	SampleRecorded = "recorded"
	SampleSkipped  = "skipped"
	SampleFailed   = "failed"
)

// Metrics holds every pipeline collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	samples          *prometheus.CounterVec
	sourceLatency    prometheus.Histogram
	lastSample       prometheus.Gauge
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	rows             *prometheus.GaugeVec
	unresolvedApps   prometheus.Gauge
	categoryRules    prometheus.Gauge
	componentStatus  *prometheus.GaugeVec
	lastRunCompleted prometheus.Gauge
}

// New registers the pipeline collectors plus Go and process collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		samples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Sampler ticks, partitioned by outcome",
		}, []string{"result"}),
		sourceLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_source_seconds",
			Help:      "Latency of window-state source queries",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		lastSample: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sample_timestamp_seconds",
			Help:      "Unix time of the last recorded event",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "Aggregation runs, partitioned by terminal status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_run_seconds",
			Help:      "Wall time of aggregation runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		rows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregation_rows",
			Help:      "Rows written by the last completed run, partitioned by bucket kind",
		}, []string{"kind"}),
		unresolvedApps: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unresolved_apps",
			Help:      "Apps defaulted to Uncategorized in the last completed run",
		}),
		categoryRules: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_rules",
			Help:      "Rules in the current category snapshot",
		}),
		componentStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_status",
			Help:      "1 for the current status of each diagnosed component",
		}, []string{"component", "status"}),
		lastRunCompleted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_completed_timestamp_seconds",
			Help:      "Unix time the last aggregation run completed successfully",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSample records one sampler tick
func (m *Metrics) ObserveSample(result string, sourceLatency time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(result).Inc()
	if sourceLatency > 0 {
		m.sourceLatency.Observe(sourceLatency.Seconds())
	}
	if result == SampleRecorded {
		m.lastSample.Set(float64(at.Unix()))
	}
}

// ObserveRun records one aggregation run
func (m *Metrics) ObserveRun(status string, duration time.Duration, completedAt time.Time, hourly, daily, category, unresolved int64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
	if status != "completed" {
		return
	}
	m.rows.WithLabelValues("hourly").Set(float64(hourly))
	m.rows.WithLabelValues("daily").Set(float64(daily))
	m.rows.WithLabelValues("category").Set(float64(category))
	m.unresolvedApps.Set(float64(unresolved))
	m.lastRunCompleted.Set(float64(completedAt.Unix()))
}

// SetCategoryRules records the size of the current rule snapshot
func (m *Metrics) SetCategoryRules(n int) {
	if m == nil {
		return
	}
	m.categoryRules.Set(float64(n))
}

// SetComponentStatus marks status as current for component and clears the others
func (m *Metrics) SetComponentStatus(component, status string, known []string) {
	if m == nil {
		return
	}
	for _, s := range known {
		v := 0.0
		if s == status {
			v = 1
		}
		m.componentStatus.WithLabelValues(component, s).Set(v)
	}
}
