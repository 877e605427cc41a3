// Package metrics records plugin execution statistics for a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives events from the tree walker. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// PluginExecuted is called once per plugin invocation.
	PluginExecuted(plugin, phase string, took time.Duration, err error)
	// NodeRegrouped is called when a regroup phase runs; skipped is true when
	// the data was already grouped.
	NodeRegrouped(skipped bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) PluginExecuted(string, string, time.Duration, error) {}
func (Nop) NodeRegrouped(bool)                                  {}

// Prometheus exports events as Prometheus metrics.
type Prometheus struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	regroups   *prometheus.CounterVec
}

// NewPrometheus registers the run metrics on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifgrid",
			Subsystem: "plugin",
			Name:      "executions_total",
			Help:      "Plugin invocations by plugin, phase and status.",
		}, []string{"plugin", "phase", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ifgrid",
			Subsystem: "plugin",
			Name:      "execution_duration_seconds",
			Help:      "Plugin invocation latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"plugin", "phase"}),
		regroups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifgrid",
			Subsystem: "tree",
			Name:      "regroups_total",
			Help:      "Regroup phases by outcome (grouped, skipped).",
		}, []string{"outcome"}),
	}
}

func (p *Prometheus) PluginExecuted(plugin, phase string, took time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.executions.WithLabelValues(plugin, phase, status).Inc()
	p.duration.WithLabelValues(plugin, phase).Observe(took.Seconds())
}

func (p *Prometheus) NodeRegrouped(skipped bool) {
	outcome := "grouped"
	if skipped {
		outcome = "skipped"
	}
	p.regroups.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes every metric gathered by g to path in the Prometheus
// text format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
