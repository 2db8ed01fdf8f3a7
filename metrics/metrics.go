package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and histograms for the assembly engine.
type Metrics struct {
	registry            *prometheus.Registry
	manifestBuildsTotal *prometheus.CounterVec
	assembliesTotal     *prometheus.CounterVec
	assemblyDuration    prometheus.Histogram
	fallbacksTotal      prometheus.Counter
}

// New creates and registers Prometheus metrics for the assembly engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	manifestBuildsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assembly_manifest_builds_total",
		Help: "Total number of manifest build requests by result",
	}, []string{"result"})
	assembliesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assembly_renders_total",
		Help: "Total number of video assembly attempts by result",
	}, []string{"result"})
	assemblyDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assembly_render_duration_seconds",
		Help:    "Wall-clock duration of video assembly attempts",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	fallbacksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assembly_fallback_bundles_total",
		Help: "Total number of render-instructions bundles produced instead of final videos",
	})

	registry.MustRegister(
		manifestBuildsTotal,
		assembliesTotal,
		assemblyDuration,
		fallbacksTotal,
	)

	return &Metrics{
		registry:            registry,
		manifestBuildsTotal: manifestBuildsTotal,
		assembliesTotal:     assembliesTotal,
		assemblyDuration:    assemblyDuration,
		fallbacksTotal:      fallbacksTotal,
	}
}

// IncManifestBuild records a manifest build outcome ("ready", "rejected" or "error").
func (m *Metrics) IncManifestBuild(result string) {
	m.manifestBuildsTotal.WithLabelValues(result).Inc()
}

// IncAssembly records an assembly outcome ("completed", "fallback" or "failed").
func (m *Metrics) IncAssembly(result string) {
	m.assembliesTotal.WithLabelValues(result).Inc()
}

// ObserveAssemblyDuration records how long an assembly attempt took.
func (m *Metrics) ObserveAssemblyDuration(seconds float64) {
	m.assemblyDuration.Observe(seconds)
}

// IncFallbacks increments the fallback bundle counter.
func (m *Metrics) IncFallbacks() {
	m.fallbacksTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
