package stream

import (
	"sync"
	"sync/atomic"

	"github.com/go-drift/rxdrift/pkg/errors"
)

// Observer receives notifications from an Observable. Nil callbacks are skipped.
type Observer[T any] struct {
	Next     func(value T)
	Error    func(err error)
	Complete func()
}

// Subscription is an active link between an Observable and an Observer.
type Subscription interface {
	// Unsubscribe stops delivery and runs the producer's teardown.
	// Calling it more than once is a no-op.
	Unsubscribe()
	// Closed reports whether the subscription has ended.
	Closed() bool
}

// Observable is a lazy push source.
type Observable[T any] interface {
	Subscribe(observer Observer[T]) Subscription
}

// Sink is the producer side of a subscription. After Error or Complete, or
// once the consumer unsubscribes, further calls are ignored.
type Sink[T any] interface {
	Next(value T)
	Error(err error)
	Complete()
	// Add registers a teardown to run when the subscription closes.
	// If the subscription is already closed the teardown runs immediately.
	Add(teardown func())
	Closed() bool
}

// Producer starts a subscription's work and returns its teardown (or nil).
type Producer[T any] func(sink Sink[T]) (teardown func())

type producerObservable[T any] struct {
	produce Producer[T]
}

// New creates an Observable that runs produce once per subscription.
//
//	ticks := stream.New(func(sink stream.Sink[string]) func() {
//	    cancel := stream.CurrentScheduler().AfterFunc(time.Second, func() {
//	        sink.Next("tick")
//	        sink.Complete()
//	    })
//	    return cancel
//	})
func New[T any](produce Producer[T]) Observable[T] {
	return producerObservable[T]{produce: produce}
}

func (o producerObservable[T]) Subscribe(observer Observer[T]) Subscription {
	sub := newSubscriber(observer)
	sub.Add(o.produce(sub))
	return sub
}

// subscriber implements both Sink and Subscription.
type subscriber[T any] struct {
	observer  Observer[T]
	closed    atomic.Bool
	mu        sync.Mutex
	teardowns []func()
}

func newSubscriber[T any](observer Observer[T]) *subscriber[T] {
	return &subscriber[T]{observer: observer}
}

func (s *subscriber[T]) Next(value T) {
	if s.closed.Load() || s.observer.Next == nil {
		return
	}
	s.observer.Next(value)
}

func (s *subscriber[T]) Error(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.observer.Error != nil {
		s.observer.Error(err)
	} else {
		errors.Report(&errors.DriftError{
			Op:   "stream.Subscribe",
			Kind: errors.KindPipeline,
			Err:  err,
		})
	}
	s.runTeardowns()
}

func (s *subscriber[T]) Complete() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.observer.Complete != nil {
		s.observer.Complete()
	}
	s.runTeardowns()
}

func (s *subscriber[T]) Unsubscribe() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.runTeardowns()
}

func (s *subscriber[T]) Closed() bool {
	return s.closed.Load()
}

func (s *subscriber[T]) Add(teardown func()) {
	if teardown == nil {
		return
	}
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		teardown()
		return
	}
	s.teardowns = append(s.teardowns, teardown)
	s.mu.Unlock()
}

func (s *subscriber[T]) runTeardowns() {
	s.mu.Lock()
	teardowns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	for _, teardown := range teardowns {
		teardown()
	}
}

// closedSubscription is returned when subscribing to a finished channel.
type closedSubscription struct{}

func (closedSubscription) Unsubscribe()  {}
func (closedSubscription) Closed() bool { return true }
