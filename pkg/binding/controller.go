package binding

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-drift/rxdrift/pkg/errors"
	"github.com/go-drift/rxdrift/pkg/metrics"
	"github.com/go-drift/rxdrift/pkg/stream"
)

var (
	// ErrInvalidFactory is returned by New for a zero Factory.
	ErrInvalidFactory = stderrors.New("binding: factory was not created with Project, ProjectWithInputs, OnEvent, or OnEventWithInputs")
	// ErrInitialType is returned by New when WithInitial's value is not of the state type.
	ErrInitialType = stderrors.New("binding: initial value has the wrong type")
	// ErrNilPipeline is returned by New when the factory returns nil.
	ErrNilPipeline = stderrors.New("binding: factory returned a nil pipeline")
)

var nextID atomic.Uint64

// Snapshot is the value a binding exposes to the renderer.
// Valid is false until the binding has either an initial value or an emission.
// A new Snapshot is allocated for every state write, so pointer equality is
// enough to tell whether anything changed.
type Snapshot[S any] struct {
	Value   S
	Valid   bool
	Version uint64
}

// Get returns the value and whether it is set.
func (s *Snapshot[S]) Get() (S, bool) {
	return s.Value, s.Valid
}

// Store is the pull-facing contract a renderer polls.
type Store[S any] interface {
	// Subscribe starts delivering changes. onChange runs after the new value
	// is visible through Snapshot. The returned function stops delivery and
	// is safe to call more than once.
	Subscribe(onChange func()) (unsubscribe func())
	// Snapshot returns the current value. It returns the same pointer until
	// the value changes.
	Snapshot() *Snapshot[S]
}

// ConstructError wraps a panic raised by a pipeline factory.
type ConstructError struct {
	Binding    string
	Kind       Kind
	Recovered  any
	StackTrace string
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("binding %s (%s): factory panicked: %v", e.Binding, e.Kind, e.Recovered)
}

func (e *ConstructError) Unwrap() error {
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}

// Controller owns one mounted binding instance. It is not safe for
// concurrent use; all calls belong on the UI thread.
type Controller[E, S any] struct {
	id      uint64
	name    string
	kind    Kind
	logger  *slog.Logger
	metrics *metrics.Registry
	onError func(error)

	events *stream.Subject[E]
	state  *stream.BehaviorSubject[S]
	inputs *stream.BehaviorSubject[Inputs]

	pipeline stream.Observable[S]
	emitter  *Emitter[E]

	inputsEnabled bool
	lastInputs    Inputs

	snapshot *Snapshot[S]
	version  uint64
	sub      stream.Subscription
	err      error
	disposed bool
}

// New creates the binding's channels and invokes factory exactly once.
// A panic inside the factory is returned as a *ConstructError; in that case
// every channel is already completed and nothing needs disposing.
func New[E, S any](factory Factory[E, S], opts ...Option) (c *Controller[E, S], err error) {
	if !factory.Valid() {
		return nil, ErrInvalidFactory
	}
	cfg := newConfig(opts)

	var initial S
	if cfg.hasInitial && cfg.initial != nil {
		v, ok := cfg.initial.(S)
		if !ok {
			return nil, fmt.Errorf("%w: want %T, got %T", ErrInitialType, initial, cfg.initial)
		}
		initial = v
	}

	id := nextID.Add(1)
	name := cfg.name
	if name == "" {
		name = factory.Kind().String()
	}

	ctrl := &Controller[E, S]{
		id:            id,
		name:          name,
		kind:          factory.Kind(),
		logger:        cfg.logger.With("binding", name, "binding_id", id),
		metrics:       cfg.metrics,
		onError:       cfg.onError,
		state:         stream.NewBehaviorSubject(initial),
		inputs:        stream.NewBehaviorSubject(cloneInputs(cfg.inputs)),
		inputsEnabled: cfg.hasInputs && len(cfg.inputs) > 0,
		lastInputs:    cloneInputs(cfg.inputs),
		snapshot:      &Snapshot[S]{Value: initial, Valid: cfg.hasInitial},
	}

	var events stream.Observable[E]
	if ctrl.kind.HasEvents() {
		ctrl.events = stream.NewSubject[E]()
		ctrl.emitter = newEmitter(ctrl.events, name, ctrl.logger, ctrl.metrics)
		events = ctrl.events
	}

	defer func() {
		if r := recover(); r != nil {
			ctrl.completeChannels()
			c = nil
			err = &ConstructError{
				Binding:    name,
				Kind:       ctrl.kind,
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
			}
		}
	}()

	pipeline := factory.build(events, ctrl.state, ctrl.inputs)
	if pipeline == nil {
		ctrl.completeChannels()
		return nil, fmt.Errorf("%w (binding %s)", ErrNilPipeline, name)
	}
	ctrl.pipeline = pipeline

	ctrl.metrics.BindingConstructed(name, ctrl.kind.String())
	ctrl.logger.Debug("binding constructed", "kind", ctrl.kind.String(), "inputs", ctrl.inputsEnabled)
	return ctrl, nil
}

// Name returns the binding's label.
func (c *Controller[E, S]) Name() string { return c.name }

// Kind returns the factory shape the binding was built with.
func (c *Controller[E, S]) Kind() Kind { return c.kind }

// Emitter returns the event façade, or nil for projection bindings.
// The same pointer is returned for the life of the controller.
func (c *Controller[E, S]) Emitter() *Emitter[E] { return c.emitter }

// Err returns the error that terminated the pipeline, if any.
func (c *Controller[E, S]) Err() error { return c.err }

// Disposed reports whether Dispose has run.
func (c *Controller[E, S]) Disposed() bool { return c.disposed }

// Subscribed reports whether a pipeline subscription is live.
func (c *Controller[E, S]) Subscribed() bool {
	return c.sub != nil && !c.sub.Closed()
}

// Description summarizes a binding for diagnostics.
type Description struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Version    uint64 `json:"version"`
	HasValue   bool   `json:"hasValue"`
	Subscribed bool   `json:"subscribed"`
	Disposed   bool   `json:"disposed,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Describe reports the binding's identity and current status.
func (c *Controller[E, S]) Describe() Description {
	d := Description{
		ID:         c.id,
		Name:       c.name,
		Kind:       c.kind.String(),
		Version:    c.snapshot.Version,
		HasValue:   c.snapshot.Valid,
		Subscribed: c.Subscribed(),
		Disposed:   c.disposed,
	}
	if c.err != nil {
		d.Error = c.err.Error()
	}
	return d
}

// Snapshot returns the current value.
func (c *Controller[E, S]) Snapshot() *Snapshot[S] {
	return c.snapshot
}

// Subscribe connects the pipeline. Every emission is pushed into the state
// channel and the snapshot before onChange runs. Only one subscription is
// live at a time; subscribing again releases the previous one. After
// Dispose or a pipeline error, Subscribe does nothing.
func (c *Controller[E, S]) Subscribe(onChange func()) func() {
	if c.disposed || c.err != nil {
		return func() {}
	}
	c.releaseSubscription()

	sub := c.pipeline.Subscribe(stream.Observer[S]{
		Next: func(v S) {
			if c.disposed {
				return
			}
			c.writeState(v)
			if onChange != nil {
				onChange()
			}
		},
		Error: c.fail,
		Complete: func() {
			c.logger.Debug("pipeline completed")
		},
	})
	c.sub = sub
	c.logger.Debug("binding subscribed")

	return func() {
		sub.Unsubscribe()
		if c.sub == sub {
			c.sub = nil
		}
	}
}

// InputsChanged reports whether Update(next) would push into the input channel.
func (c *Controller[E, S]) InputsChanged(next Inputs) bool {
	return !c.disposed && c.inputsEnabled && InputsChanged(c.lastInputs, next)
}

// Update forwards next into the input channel when it differs from the
// last tuple. It never rebuilds the pipeline. Bindings created without
// inputs (or with an empty tuple) ignore Update. Returns true if pushed.
func (c *Controller[E, S]) Update(next Inputs) bool {
	if !c.InputsChanged(next) {
		return false
	}
	if len(next) != len(c.lastInputs) {
		c.logger.Warn("binding input arity changed", "from", len(c.lastInputs), "to", len(next))
	}
	c.lastInputs = cloneInputs(next)
	c.inputs.Next(c.lastInputs)
	c.metrics.InputPushed(c.name)
	return true
}

// Dispose releases the subscription, then completes the state, input, and
// event channels in that order. Only the first call has any effect.
func (c *Controller[E, S]) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.releaseSubscription()
	c.completeChannels()
	c.metrics.BindingDisposed(c.name)
	c.logger.Debug("binding disposed", "version", c.version)
}

func (c *Controller[E, S]) releaseSubscription() {
	if c.sub != nil {
		sub := c.sub
		c.sub = nil
		sub.Unsubscribe()
	}
}

func (c *Controller[E, S]) completeChannels() {
	c.state.Complete()
	c.inputs.Complete()
	if c.events != nil {
		c.events.Complete()
	}
}

func (c *Controller[E, S]) writeState(v S) {
	c.state.Next(v)
	c.version++
	c.snapshot = &Snapshot[S]{Value: v, Valid: true, Version: c.version}
	c.metrics.Emission(c.name)
}

func (c *Controller[E, S]) fail(err error) {
	c.err = err
	c.sub = nil
	perr := &errors.PipelineError{
		Binding:     c.name,
		BindingKind: c.kind.String(),
		Err:         err,
	}
	c.metrics.PipelineError(c.name)
	errors.ReportPipelineError(perr)
	if c.onError != nil {
		c.onError(perr)
	}
}
