// Package monitoring exposes Prometheus metrics for the host: HTTP traffic
// on the orchestrator API, sandbox lifecycle, overlay writes, and hosted
// script execution.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Sandbox metrics
	SandboxesActive prometheus.Gauge
	Activations     prometheus.Counter
	OverlayWrites   *prometheus.CounterVec
	MountsTotal     *prometheus.CounterVec
	ScriptDuration  *prometheus.HistogramVec
	ScriptErrors    *prometheus.CounterVec
}

// New creates a metrics collector on its own registry.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qiankun_http_requests_total",
			Help: "Total HTTP requests to the orchestrator API",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qiankun_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SandboxesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qiankun_sandboxes_active",
			Help: "Number of currently running sandboxes",
		}),
		Activations: factory.NewCounter(prometheus.CounterOpts{
			Name: "qiankun_sandbox_activations_total",
			Help: "Total sandbox activations",
		}),
		OverlayWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qiankun_sandbox_overlay_writes_total",
			Help: "Global writes confined to a sandbox overlay",
		}, []string{"app"}),
		MountsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qiankun_app_mounts_total",
			Help: "Micro-app mount attempts",
		}, []string{"app", "status"}),
		ScriptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qiankun_script_duration_seconds",
			Help:    "Hosted module execution duration",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"app"}),
		ScriptErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qiankun_script_errors_total",
			Help: "Hosted module execution errors",
		}, []string{"app"}),
	}
	return m, reg
}

// RecordHTTPRequest records one orchestrator API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMount records a mount attempt and its outcome.
func (m *Metrics) RecordMount(app string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.MountsTotal.WithLabelValues(app, status).Inc()
}

// RecordExecution records one hosted script run.
func (m *Metrics) RecordExecution(app string, duration time.Duration, err error) {
	m.ScriptDuration.WithLabelValues(app).Observe(duration.Seconds())
	if err != nil {
		m.ScriptErrors.WithLabelValues(app).Inc()
	}
}
