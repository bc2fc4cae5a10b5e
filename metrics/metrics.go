// Package metrics exposes Prometheus instrumentation for tool calls, model
// calls and executions. A Metrics value satisfies the observer interfaces of
// the tool, agent and execution packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agentstudio/agent"
	"github.com/hupe1980/agentstudio/execution"
	"github.com/hupe1980/agentstudio/tool"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Metrics holds the collectors registered by New.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	modelCalls       *prometheus.CounterVec
	modelDuration    *prometheus.HistogramVec
	executions       *prometheus.CounterVec
	executionSeconds *prometheus.HistogramVec
}

var (
	_ tool.Observer       = (*Metrics)(nil)
	_ agent.ModelObserver = (*Metrics)(nil)
	_ execution.Observer  = (*Metrics)(nil)
)

// New registers the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentstudio_tool_calls_total",
			Help: "Total number of tool invocations by tool and outcome.",
		}, []string{"tool", "success"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentstudio_tool_call_duration_seconds",
			Help:    "Latency distribution of tool invocations.",
			Buckets: latencyBuckets,
		}, []string{"tool"}),
		modelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentstudio_model_calls_total",
			Help: "Total number of model generations by provider, model and outcome.",
		}, []string{"provider", "model", "success"}),
		modelDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentstudio_model_call_duration_seconds",
			Help:    "Latency distribution of model generations.",
			Buckets: latencyBuckets,
		}, []string{"provider", "model"}),
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agentstudio_executions_total",
			Help: "Finished agent and workflow executions by final status.",
		}, []string{"kind", "status"}),
		executionSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentstudio_execution_duration_seconds",
			Help:    "Wall time of finished executions.",
			Buckets: latencyBuckets,
		}, []string{"kind"}),
	}
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveToolCall implements tool.Observer.
func (m *Metrics) ObserveToolCall(toolID string, success bool, elapsed time.Duration) {
	m.toolCalls.WithLabelValues(toolID, strconv.FormatBool(success)).Inc()
	m.toolDuration.WithLabelValues(toolID).Observe(elapsed.Seconds())
}

// ObserveModelCall implements agent.ModelObserver.
func (m *Metrics) ObserveModelCall(provider, modelName string, success bool, elapsed time.Duration) {
	m.modelCalls.WithLabelValues(provider, modelName, strconv.FormatBool(success)).Inc()
	m.modelDuration.WithLabelValues(provider, modelName).Observe(elapsed.Seconds())
}

// ObserveExecution implements execution.Observer.
func (m *Metrics) ObserveExecution(kind execution.Kind, status execution.Status, elapsed time.Duration) {
	m.executions.WithLabelValues(string(kind), string(status)).Inc()
	m.executionSeconds.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
