// Package metrics exports profiling session metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.jacobcolvin.com/hostprof/session"
)

// Collector tracks session transitions, recovered errors and artifact size.
//
// Create instances with [NewCollector].
type Collector struct {
	registry      *prometheus.Registry
	state         *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	errors        prometheus.Counter
	artifactBytes prometheus.Gauge
}

// NewCollector creates a [Collector] with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hostprof_session_state",
				Help: "Current profiling session state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostprof_session_transitions_total",
				Help: "Total profiling session state transitions",
			},
			[]string{"from", "to"},
		),
		errors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hostprof_session_errors_total",
				Help: "Total worker errors recovered by the session controller",
			},
		),
		artifactBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hostprof_last_artifact_bytes",
				Help: "Size of the last profile artifact in bytes (0 when none)",
			},
		),
	}

	c.registry.MustRegister(c.state, c.transitions, c.errors, c.artifactBytes)

	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition
// format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StateGauge returns the state gauge for s.
func (c *Collector) StateGauge(s session.State) prometheus.Gauge {
	return c.state.WithLabelValues(s.String())
}

// Transitions returns the transition counter for from -> to.
func (c *Collector) Transitions(from, to session.State) prometheus.Counter {
	return c.transitions.WithLabelValues(from.String(), to.String())
}

// Errors returns the recovered error counter.
func (c *Collector) Errors() prometheus.Counter {
	return c.errors
}

// ArtifactBytes returns the last artifact size gauge.
func (c *Collector) ArtifactBytes() prometheus.Gauge {
	return c.artifactBytes
}

// Observe records ctrl's transitions and artifacts until the returned
// function is called.
func (c *Collector) Observe(ctrl *session.Controller) func() {
	prev := ctrl.State()
	c.setState(prev)
	c.setArtifact(ctrl.LastArtifact())

	disposeState := ctrl.OnStateChanged(func(s session.State) {
		c.transitions.WithLabelValues(prev.String(), s.String()).Inc()
		c.setState(s)

		prev = s
	})
	disposeArtifact := ctrl.OnLastArtifactChanged(c.setArtifact)

	return func() {
		disposeState()
		disposeArtifact()
	}
}

// Reporter returns a [session.Reporter] that counts each error and then
// forwards it to next.
func (c *Collector) Reporter(next session.Reporter) session.Reporter {
	return session.ReporterFunc(func(err error) {
		c.errors.Inc()

		if next != nil {
			next.Report(err)
		}
	})
}

func (c *Collector) setState(cur session.State) {
	for _, s := range session.States {
		v := 0.0
		if s == cur {
			v = 1
		}

		c.state.WithLabelValues(s.String()).Set(v)
	}
}

func (c *Collector) setArtifact(a *session.Artifact) {
	if a == nil {
		c.artifactBytes.Set(0)
		return
	}

	c.artifactBytes.Set(float64(a.Size()))
}
