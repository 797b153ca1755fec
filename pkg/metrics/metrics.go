// Package metrics provides Prometheus instrumentation for rxdrift bindings.
//
// A nil *Registry is valid and records nothing, so bindings can call the
// recording methods unconditionally.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the metric instances for bindings.
type Registry struct {
	BindingsConstructed *prometheus.CounterVec
	BindingsActive      *prometheus.GaugeVec
	BindingsDisposed    *prometheus.CounterVec
	Emissions           *prometheus.CounterVec
	InputPushes         *prometheus.CounterVec
	EventsEmitted       *prometheus.CounterVec
	EventsDropped       *prometheus.CounterVec
	PipelineErrors      *prometheus.CounterVec

	Frames        prometheus.Counter
	FrameDuration prometheus.Histogram
	Dispatched    prometheus.Counter
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a registry registered with prometheus.DefaultRegisterer.
// It is created on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(DefaultConfig())
	})
	return defaultRegistry
}

// New creates a registry from cfg. It returns nil when cfg.Enabled is false.
func New(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "rxdrift"
	}
	factory := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "binding",
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels)
	}

	return &Registry{
		BindingsConstructed: counter("constructed_total",
			"Total number of bindings whose pipeline was built", "binding", "kind"),
		BindingsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   "binding",
			Name:        "active",
			Help:        "Number of mounted bindings",
			ConstLabels: cfg.Labels,
		}, []string{"binding"}),
		BindingsDisposed: counter("disposed_total",
			"Total number of bindings torn down", "binding"),
		Emissions: counter("emissions_total",
			"Total number of pipeline emissions written to the snapshot", "binding"),
		InputPushes: counter("input_pushes_total",
			"Total number of changed input tuples pushed into pipelines", "binding"),
		EventsEmitted: counter("events_emitted_total",
			"Total number of events pushed through emitters", "binding"),
		EventsDropped: counter("events_dropped_total",
			"Total number of events dropped because the binding was torn down", "binding"),
		PipelineErrors: counter("pipeline_errors_total",
			"Total number of pipelines terminated by an error", "binding"),
		Frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "engine",
			Name:        "frames_total",
			Help:        "Total number of frames pumped by the run loop",
			ConstLabels: cfg.Labels,
		}),
		FrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   "engine",
			Name:        "frame_duration_seconds",
			Help:        "Time spent in dispatch, build, and post-build per frame",
			Buckets:     []float64{.0005, .001, .002, .004, .008, .016, .033, .066, .1},
			ConstLabels: cfg.Labels,
		}),
		Dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "engine",
			Name:        "dispatched_total",
			Help:        "Total number of callbacks run from the dispatch queue",
			ConstLabels: cfg.Labels,
		}),
	}
}

// BindingConstructed records a pipeline build.
func (r *Registry) BindingConstructed(binding, kind string) {
	if r == nil {
		return
	}
	r.BindingsConstructed.WithLabelValues(binding, kind).Inc()
	r.BindingsActive.WithLabelValues(binding).Inc()
}

// BindingDisposed records a teardown.
func (r *Registry) BindingDisposed(binding string) {
	if r == nil {
		return
	}
	r.BindingsDisposed.WithLabelValues(binding).Inc()
	r.BindingsActive.WithLabelValues(binding).Dec()
}

// Emission records a snapshot update.
func (r *Registry) Emission(binding string) {
	if r == nil {
		return
	}
	r.Emissions.WithLabelValues(binding).Inc()
}

// InputPushed records a changed input tuple.
func (r *Registry) InputPushed(binding string) {
	if r == nil {
		return
	}
	r.InputPushes.WithLabelValues(binding).Inc()
}

// EventEmitted records an event push. dropped is true when the event
// channel had already completed.
func (r *Registry) EventEmitted(binding string, dropped bool) {
	if r == nil {
		return
	}
	if dropped {
		r.EventsDropped.WithLabelValues(binding).Inc()
		return
	}
	r.EventsEmitted.WithLabelValues(binding).Inc()
}

// PipelineError records a pipeline failure.
func (r *Registry) PipelineError(binding string) {
	if r == nil {
		return
	}
	r.PipelineErrors.WithLabelValues(binding).Inc()
}

// FrameRendered records one frame and the number of dispatched callbacks it ran.
func (r *Registry) FrameRendered(d time.Duration, dispatched int) {
	if r == nil {
		return
	}
	r.Frames.Inc()
	r.FrameDuration.Observe(d.Seconds())
	r.Dispatched.Add(float64(dispatched))
}
