package binding

import (
	"log/slog"

	"github.com/go-drift/rxdrift/pkg/metrics"
	"github.com/go-drift/rxdrift/pkg/stream"
)

// Emitter pushes caller events onto a binding's event channel. A controller
// hands out one Emitter for its whole life, so the pointer can be passed
// to children that compare callbacks by identity.
type Emitter[E any] struct {
	events  *stream.Subject[E]
	binding string
	logger  *slog.Logger
	metrics *metrics.Registry
	fn      func(E)
}

func newEmitter[E any](events *stream.Subject[E], binding string, logger *slog.Logger, m *metrics.Registry) *Emitter[E] {
	e := &Emitter[E]{
		events:  events,
		binding: binding,
		logger:  logger,
		metrics: m,
	}
	e.fn = e.Emit
	return e
}

// Emit pushes event to the pipeline. Events sent after the binding is torn
// down are dropped.
func (e *Emitter[E]) Emit(event E) {
	if e.events.Completed() {
		e.metrics.EventEmitted(e.binding, true)
		e.logger.Debug("event dropped after teardown")
		return
	}
	e.metrics.EventEmitted(e.binding, false)
	e.events.Next(event)
}

// Func returns Emit as a plain callback. The same func value is returned on
// every call.
func (e *Emitter[E]) Func() func(E) {
	return e.fn
}
