// Package metrics counts resolution work on a dedicated Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

type Metrics struct {
	registry *prometheus.Registry

	stageHits     *prometheus.CounterVec
	implCache     *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	filesLoaded   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stageHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sema_resolve_stage_hits_total",
			Help: "Name resolution stages that produced at least one match.",
		}, []string{"stage"}),
		implCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sema_generic_impl_cache_total",
			Help: "Generic impl header cache lookups by outcome.",
		}, []string{"outcome"}),
		parseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sema_fragment_parse_failures_total",
			Help: "Fragments the parser rejected, by extraction kind.",
		}, []string{"kind"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sema_query_seconds",
			Help:    "Latency of top-level engine queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		filesLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "sema_files_loaded_total",
			Help: "Source files read through the file loader.",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) StageHit(stage string) {
	if m == nil {
		return
	}
	m.stageHits.WithLabelValues(stage).Inc()
}

func (m *Metrics) ImplCacheHit() {
	if m == nil {
		return
	}
	m.implCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) ImplCacheMiss() {
	if m == nil {
		return
	}
	m.implCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) ParseFailure(kind string) {
	if m == nil {
		return
	}
	m.parseFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) FileLoaded() {
	if m == nil {
		return
	}
	m.filesLoaded.Inc()
}

// ObserveQuery records the time since start under the query label.
func (m *Metrics) ObserveQuery(query string, start time.Time) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// WriteText renders every gathered metric family in the text exposition
// format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
