package binding

import (
	"log/slog"

	"github.com/go-drift/rxdrift/pkg/metrics"
)

// Option configures a binding.
type Option func(*config)

type config struct {
	initial    any
	hasInitial bool
	inputs     Inputs
	hasInputs  bool
	name       string
	logger     *slog.Logger
	metrics    *metrics.Registry
	onError    func(error)
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// WithInitial seeds the state channel and the first snapshot with value.
// Without it the state channel starts at the zero value and the snapshot
// reports Valid == false until the pipeline first emits.
func WithInitial(value any) Option {
	return func(c *config) {
		c.initial = value
		c.hasInitial = true
	}
}

// WithInputs declares the input tuple for this render. Declaring inputs
// enables input reactivity: whenever a later render passes a tuple that
// differs element-wise, it is pushed into the input channel. An empty
// tuple is pushed once and never again.
func WithInputs(values ...any) Option {
	return func(c *config) {
		c.inputs = Inputs(values)
		c.hasInputs = true
	}
}

// WithName labels the binding in logs and metrics.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records binding activity in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *config) {
		c.metrics = r
	}
}

// WithOnError receives pipeline errors. The host framework uses it to route
// the error to the nearest error boundary. Handlers accumulate and run in
// the order they were given.
func WithOnError(fn func(error)) Option {
	return func(c *config) {
		if fn == nil {
			return
		}
		if prev := c.onError; prev != nil {
			c.onError = func(err error) {
				prev(err)
				fn(err)
			}
			return
		}
		c.onError = fn
	}
}

// ResolveInputs returns the input tuple declared by opts, if any.
// Hosts call it on every render to feed Controller.Update.
func ResolveInputs(opts ...Option) (Inputs, bool) {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg.inputs, cfg.hasInputs
}
