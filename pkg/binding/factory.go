package binding

import (
	"github.com/go-drift/rxdrift/pkg/stream"
)

// Kind identifies which pipeline shape a Factory wraps.
type Kind int

const (
	// KindProjection is (state$) -> output$.
	KindProjection Kind = iota
	// KindProjectionWithInputs is (state$, inputs$) -> output$.
	KindProjectionWithInputs
	// KindEvent is (event$, state$) -> output$.
	KindEvent
	// KindEventWithInputs is (event$, state$, inputs$) -> output$.
	KindEventWithInputs
)

func (k Kind) String() string {
	switch k {
	case KindProjection:
		return "projection"
	case KindProjectionWithInputs:
		return "projection+inputs"
	case KindEvent:
		return "event"
	case KindEventWithInputs:
		return "event+inputs"
	default:
		return "unknown"
	}
}

// HasEvents reports whether the shape takes an event channel.
func (k Kind) HasEvents() bool {
	return k == KindEvent || k == KindEventWithInputs
}

// UsesInputs reports whether the shape takes an input channel.
func (k Kind) UsesInputs() bool {
	return k == KindProjectionWithInputs || k == KindEventWithInputs
}

// NoEvent is the event type of projection bindings, which have no event channel.
type NoEvent = struct{}

// ProjectionFunc builds a pipeline from the state channel.
type ProjectionFunc[S any] func(state stream.Observable[S]) stream.Observable[S]

// ProjectionWithInputsFunc builds a pipeline from the state and input channels.
type ProjectionWithInputsFunc[S any] func(state stream.Observable[S], inputs stream.Observable[Inputs]) stream.Observable[S]

// EventFunc builds a pipeline from the event and state channels.
type EventFunc[E, S any] func(events stream.Observable[E], state stream.Observable[S]) stream.Observable[S]

// EventWithInputsFunc builds a pipeline from the event, state, and input channels.
type EventWithInputsFunc[E, S any] func(events stream.Observable[E], state stream.Observable[S], inputs stream.Observable[Inputs]) stream.Observable[S]

// Factory is a pipeline factory tagged with its shape.
type Factory[E, S any] struct {
	kind  Kind
	build func(events stream.Observable[E], state stream.Observable[S], inputs stream.Observable[Inputs]) stream.Observable[S]
}

// Project wraps a (state$) -> output$ factory.
func Project[S any](fn ProjectionFunc[S]) Factory[NoEvent, S] {
	return Factory[NoEvent, S]{
		kind: KindProjection,
		build: func(_ stream.Observable[NoEvent], state stream.Observable[S], _ stream.Observable[Inputs]) stream.Observable[S] {
			return fn(state)
		},
	}
}

// ProjectWithInputs wraps a (state$, inputs$) -> output$ factory.
func ProjectWithInputs[S any](fn ProjectionWithInputsFunc[S]) Factory[NoEvent, S] {
	return Factory[NoEvent, S]{
		kind: KindProjectionWithInputs,
		build: func(_ stream.Observable[NoEvent], state stream.Observable[S], inputs stream.Observable[Inputs]) stream.Observable[S] {
			return fn(state, inputs)
		},
	}
}

// OnEvent wraps an (event$, state$) -> output$ factory.
func OnEvent[E, S any](fn EventFunc[E, S]) Factory[E, S] {
	return Factory[E, S]{
		kind: KindEvent,
		build: func(events stream.Observable[E], state stream.Observable[S], _ stream.Observable[Inputs]) stream.Observable[S] {
			return fn(events, state)
		},
	}
}

// OnEventWithInputs wraps an (event$, state$, inputs$) -> output$ factory.
func OnEventWithInputs[E, S any](fn EventWithInputsFunc[E, S]) Factory[E, S] {
	return Factory[E, S]{
		kind:  KindEventWithInputs,
		build: fn,
	}
}

// Kind returns the factory's shape.
func (f Factory[E, S]) Kind() Kind {
	return f.kind
}

// Valid reports whether f was created by one of the constructors.
func (f Factory[E, S]) Valid() bool {
	return f.build != nil
}
