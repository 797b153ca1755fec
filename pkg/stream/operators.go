package stream

import (
	"sync"
	"time"
)

// Pair carries two values produced by the combining operators.
type Pair[A, B any] struct {
	First  A
	Second B
}

// forward builds an Observer that relays terminal notifications to sink and
// handles values with next.
func forward[T, R any](sink Sink[R], next func(T)) Observer[T] {
	return Observer[T]{
		Next:     next,
		Error:    sink.Error,
		Complete: sink.Complete,
	}
}

// Map applies fn to every value.
func Map[T, R any](src Observable[T], fn func(T) R) Observable[R] {
	return New(func(sink Sink[R]) func() {
		return src.Subscribe(forward(sink, func(v T) {
			sink.Next(fn(v))
		})).Unsubscribe
	})
}

// MapTo replaces every value with value.
func MapTo[T, R any](src Observable[T], value R) Observable[R] {
	return Map(src, func(T) R { return value })
}

// Filter passes through values for which keep returns true.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return New(func(sink Sink[T]) func() {
		return src.Subscribe(forward(sink, func(v T) {
			if keep(v) {
				sink.Next(v)
			}
		})).Unsubscribe
	})
}

// Tap calls fn for every value before passing it through unchanged.
func Tap[T any](src Observable[T], fn func(T)) Observable[T] {
	return New(func(sink Sink[T]) func() {
		return src.Subscribe(forward(sink, func(v T) {
			fn(v)
			sink.Next(v)
		})).Unsubscribe
	})
}

// Scan emits the running accumulation of values, starting from seed.
func Scan[T, A any](src Observable[T], seed A, accumulate func(A, T) A) Observable[A] {
	return New(func(sink Sink[A]) func() {
		acc := seed
		return src.Subscribe(forward(sink, func(v T) {
			acc = accumulate(acc, v)
			sink.Next(acc)
		})).Unsubscribe
	})
}

// Take emits the first n values, then completes.
func Take[T any](src Observable[T], n int) Observable[T] {
	return New(func(sink Sink[T]) func() {
		if n <= 0 {
			sink.Complete()
			return nil
		}
		seen := 0
		return src.Subscribe(forward(sink, func(v T) {
			seen++
			sink.Next(v)
			if seen >= n {
				sink.Complete()
			}
		})).Unsubscribe
	})
}

// Delay shifts every value forward in time by d. Errors pass through
// immediately; completion waits for pending values. Unsubscribing cancels
// every pending timer.
func Delay[T any](src Observable[T], d time.Duration) Observable[T] {
	return New(func(sink Sink[T]) func() {
		sched := CurrentScheduler()
		var (
			mu      sync.Mutex
			pending = make(map[uint64]func())
			seq     uint64
			done    bool
		)

		sub := src.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				seq++
				id := seq
				pending[id] = nil
				mu.Unlock()

				cancel := sched.AfterFunc(d, func() {
					mu.Lock()
					_, live := pending[id]
					delete(pending, id)
					finish := done && len(pending) == 0
					mu.Unlock()
					if !live {
						return
					}
					sink.Next(v)
					if finish {
						sink.Complete()
					}
				})

				mu.Lock()
				if _, live := pending[id]; live {
					pending[id] = cancel
				}
				mu.Unlock()
			},
			Error: sink.Error,
			Complete: func() {
				mu.Lock()
				done = true
				finish := len(pending) == 0
				mu.Unlock()
				if finish {
					sink.Complete()
				}
			},
		})

		return func() {
			sub.Unsubscribe()
			mu.Lock()
			cancels := pending
			pending = make(map[uint64]func())
			mu.Unlock()
			for _, cancel := range cancels {
				if cancel != nil {
					cancel()
				}
			}
		}
	})
}

// WithLatestFrom pairs each value of src with the latest value of other.
// Values of src that arrive before other has emitted are dropped.
func WithLatestFrom[T, U any](src Observable[T], other Observable[U]) Observable[Pair[T, U]] {
	return New(func(sink Sink[Pair[T, U]]) func() {
		var (
			latest U
			has    bool
		)
		otherSub := other.Subscribe(Observer[U]{
			Next: func(u U) {
				latest = u
				has = true
			},
			Error: sink.Error,
		})
		sink.Add(otherSub.Unsubscribe)

		return src.Subscribe(forward(sink, func(v T) {
			if has {
				sink.Next(Pair[T, U]{First: v, Second: latest})
			}
		})).Unsubscribe
	})
}

// CombineLatest emits a pair whenever either source emits, once both have
// emitted at least once. It completes when both sources complete, or as
// soon as one completes without ever emitting.
func CombineLatest[A, B any](a Observable[A], b Observable[B]) Observable[Pair[A, B]] {
	return New(func(sink Sink[Pair[A, B]]) func() {
		var (
			lastA        A
			lastB        B
			hasA, hasB   bool
			doneA, doneB bool
		)
		emit := func() {
			if hasA && hasB {
				sink.Next(Pair[A, B]{First: lastA, Second: lastB})
			}
		}

		subA := a.Subscribe(Observer[A]{
			Next: func(v A) {
				lastA, hasA = v, true
				emit()
			},
			Error: sink.Error,
			Complete: func() {
				doneA = true
				if !hasA || doneB {
					sink.Complete()
				}
			},
		})
		sink.Add(subA.Unsubscribe)

		subB := b.Subscribe(Observer[B]{
			Next: func(v B) {
				lastB, hasB = v, true
				emit()
			},
			Error: sink.Error,
			Complete: func() {
				doneB = true
				if !hasB || doneA {
					sink.Complete()
				}
			},
		})
		return subB.Unsubscribe
	})
}

// SwitchMap maps each value to an inner Observable and mirrors only the
// most recent one, unsubscribing the previous inner source.
func SwitchMap[T, R any](src Observable[T], project func(T) Observable[R]) Observable[R] {
	return New(func(sink Sink[R]) func() {
		var (
			inner       Subscription
			generation  int
			innerActive bool
			outerDone   bool
		)
		outer := src.Subscribe(Observer[T]{
			Next: func(v T) {
				if inner != nil {
					inner.Unsubscribe()
				}
				generation++
				current := generation
				innerActive = true
				inner = project(v).Subscribe(Observer[R]{
					Next:  sink.Next,
					Error: sink.Error,
					Complete: func() {
						if current != generation {
							return
						}
						innerActive = false
						if outerDone {
							sink.Complete()
						}
					},
				})
			},
			Error: sink.Error,
			Complete: func() {
				outerDone = true
				if !innerActive {
					sink.Complete()
				}
			},
		})
		return func() {
			outer.Unsubscribe()
			if inner != nil {
				inner.Unsubscribe()
			}
		}
	})
}

// ExhaustMap maps a value to an inner Observable and ignores further values
// of src until that inner source completes.
func ExhaustMap[T, R any](src Observable[T], project func(T) Observable[R]) Observable[R] {
	return New(func(sink Sink[R]) func() {
		var (
			inner       Subscription
			innerActive bool
			outerDone   bool
		)
		outer := src.Subscribe(Observer[T]{
			Next: func(v T) {
				if innerActive {
					return
				}
				innerActive = true
				inner = project(v).Subscribe(Observer[R]{
					Next:  sink.Next,
					Error: sink.Error,
					Complete: func() {
						innerActive = false
						if outerDone {
							sink.Complete()
						}
					},
				})
			},
			Error: sink.Error,
			Complete: func() {
				outerDone = true
				if !innerActive {
					sink.Complete()
				}
			},
		})
		return func() {
			outer.Unsubscribe()
			if inner != nil {
				inner.Unsubscribe()
			}
		}
	})
}

// Merge interleaves the values of every source. It completes once all
// sources have completed.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return New(func(sink Sink[T]) func() {
		if len(sources) == 0 {
			sink.Complete()
			return nil
		}
		active := len(sources)
		for _, src := range sources {
			if sink.Closed() {
				break
			}
			sub := src.Subscribe(Observer[T]{
				Next:  sink.Next,
				Error: sink.Error,
				Complete: func() {
					active--
					if active == 0 {
						sink.Complete()
					}
				},
			})
			sink.Add(sub.Unsubscribe)
		}
		return nil
	})
}
