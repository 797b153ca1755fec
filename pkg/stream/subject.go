package stream

import (
	"slices"
	"sync"
)

// observerList is the multicast core shared by Subject and BehaviorSubject.
type observerList[T any] struct {
	mu        sync.Mutex
	observers []*subscriber[T]
	done      bool
	err       error
}

func (l *observerList[T]) remove(sub *subscriber[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := slices.Index(l.observers, sub); i >= 0 {
		l.observers = slices.Delete(l.observers, i, i+1)
	}
}

// addLocked registers observer, or reports the terminal state if the list is done.
// It must be called with l.mu held; the returned function (if non-nil) must
// be called after the lock is released.
func (l *observerList[T]) addLocked(observer Observer[T]) (*subscriber[T], func()) {
	if l.done {
		err := l.err
		return nil, func() {
			if err != nil {
				if observer.Error != nil {
					observer.Error(err)
				}
				return
			}
			if observer.Complete != nil {
				observer.Complete()
			}
		}
	}
	sub := newSubscriber(observer)
	l.observers = append(l.observers, sub)
	sub.teardowns = append(sub.teardowns, func() { l.remove(sub) })
	return sub, nil
}

func (l *observerList[T]) snapshotLocked() []*subscriber[T] {
	return slices.Clone(l.observers)
}

func (l *observerList[T]) finish(err error) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.err = err
	observers := l.observers
	l.observers = nil
	l.mu.Unlock()

	for _, sub := range observers {
		if err != nil {
			sub.Error(err)
		} else {
			sub.Complete()
		}
	}
}

func (l *observerList[T]) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.observers)
}

func (l *observerList[T]) isDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Subject is a multicast event channel without replay. Subscribers receive
// only values pushed after they subscribed.
type Subject[T any] struct {
	list observerList[T]
}

// NewSubject creates an empty event channel.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers observer for future values.
// Subscribing after completion delivers the terminal notification immediately.
func (s *Subject[T]) Subscribe(observer Observer[T]) Subscription {
	s.list.mu.Lock()
	sub, terminal := s.list.addLocked(observer)
	s.list.mu.Unlock()
	if terminal != nil {
		terminal()
		return closedSubscription{}
	}
	return sub
}

// Next pushes value to every current subscriber in subscription order.
// It is a no-op once the subject has completed.
func (s *Subject[T]) Next(value T) {
	s.list.mu.Lock()
	if s.list.done {
		s.list.mu.Unlock()
		return
	}
	observers := s.list.snapshotLocked()
	s.list.mu.Unlock()

	for _, sub := range observers {
		sub.Next(value)
	}
}

// Error terminates the subject with err. Idempotent with Complete.
func (s *Subject[T]) Error(err error) {
	s.list.finish(err)
}

// Complete notifies every subscriber and releases them. Idempotent.
func (s *Subject[T]) Complete() {
	s.list.finish(nil)
}

// Completed reports whether Complete or Error has been called.
func (s *Subject[T]) Completed() bool {
	return s.list.isDone()
}

// ObserverCount returns the number of live subscribers.
func (s *Subject[T]) ObserverCount() int {
	return s.list.count()
}

// BehaviorSubject is a replay-one channel: it always holds a current value
// and delivers it synchronously to each new subscriber before any later push.
type BehaviorSubject[T any] struct {
	list  observerList[T]
	value T
}

// NewBehaviorSubject creates a channel seeded with initial.
func NewBehaviorSubject[T any](initial T) *BehaviorSubject[T] {
	return &BehaviorSubject[T]{value: initial}
}

// Subscribe delivers the current value to observer, then future pushes.
func (s *BehaviorSubject[T]) Subscribe(observer Observer[T]) Subscription {
	s.list.mu.Lock()
	sub, terminal := s.list.addLocked(observer)
	value := s.value
	s.list.mu.Unlock()
	if terminal != nil {
		terminal()
		return closedSubscription{}
	}
	sub.Next(value)
	return sub
}

// Next stores value and pushes it to every current subscriber.
// It is a no-op once the subject has completed.
func (s *BehaviorSubject[T]) Next(value T) {
	s.list.mu.Lock()
	if s.list.done {
		s.list.mu.Unlock()
		return
	}
	s.value = value
	observers := s.list.snapshotLocked()
	s.list.mu.Unlock()

	for _, sub := range observers {
		sub.Next(value)
	}
}

// Value returns the current value. After completion it is the last value.
func (s *BehaviorSubject[T]) Value() T {
	s.list.mu.Lock()
	defer s.list.mu.Unlock()
	return s.value
}

// Error terminates the subject with err. Idempotent with Complete.
func (s *BehaviorSubject[T]) Error(err error) {
	s.list.finish(err)
}

// Complete notifies every subscriber and releases them. Idempotent.
func (s *BehaviorSubject[T]) Complete() {
	s.list.finish(nil)
}

// Completed reports whether Complete or Error has been called.
func (s *BehaviorSubject[T]) Completed() bool {
	return s.list.isDone()
}

// ObserverCount returns the number of live subscribers.
func (s *BehaviorSubject[T]) ObserverCount() int {
	return s.list.count()
}
