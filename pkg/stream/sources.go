package stream

import (
	"sync"
	"time"
)

// Of emits each value in order, then completes, synchronously on subscribe.
func Of[T any](values ...T) Observable[T] {
	return New(func(sink Sink[T]) func() {
		for _, v := range values {
			if sink.Closed() {
				return nil
			}
			sink.Next(v)
		}
		sink.Complete()
		return nil
	})
}

// Empty completes immediately without emitting.
func Empty[T any]() Observable[T] {
	return New(func(sink Sink[T]) func() {
		sink.Complete()
		return nil
	})
}

// Never neither emits nor completes.
func Never[T any]() Observable[T] {
	return New(func(Sink[T]) func() { return nil })
}

// Throw errors immediately with err.
func Throw[T any](err error) Observable[T] {
	return New(func(sink Sink[T]) func() {
		sink.Error(err)
		return nil
	})
}

// Timer emits 0 after d, then completes.
func Timer(d time.Duration) Observable[int] {
	return New(func(sink Sink[int]) func() {
		return CurrentScheduler().AfterFunc(d, func() {
			sink.Next(0)
			sink.Complete()
		})
	})
}

// Interval emits 0, 1, 2, ... every d until unsubscribed.
func Interval(d time.Duration) Observable[int] {
	return New(func(sink Sink[int]) func() {
		sched := CurrentScheduler()
		var (
			mu     sync.Mutex
			cancel func()
			n      int
		)
		var schedule func()
		schedule = func() {
			c := sched.AfterFunc(d, func() {
				mu.Lock()
				v := n
				n++
				mu.Unlock()
				sink.Next(v)
				if !sink.Closed() {
					schedule()
				}
			})
			mu.Lock()
			cancel = c
			mu.Unlock()
		}
		schedule()
		return func() {
			mu.Lock()
			c := cancel
			mu.Unlock()
			c()
		}
	})
}
