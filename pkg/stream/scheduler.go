package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/rxdrift/pkg/errors"
)

// Scheduler provides time for the time-based operators. The default
// implementation uses Go timers. Tests inject a fake clock via SetScheduler
// so delays fire deterministically.
type Scheduler interface {
	Now() time.Time
	// AfterFunc arranges for fn to run once after d and returns a function
	// that cancels it. Cancelling after fn has run is a no-op.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// realScheduler fires on a Go timer and re-enters the UI thread via Dispatch.
type realScheduler struct{}

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) AfterFunc(d time.Duration, fn func()) func() {
	var stopped atomic.Bool
	timer := time.AfterFunc(d, func() {
		// Without a dispatcher fn runs here, on the timer goroutine.
		defer errors.RecoverTimer("stream.AfterFunc")
		Dispatch(func() {
			if !stopped.Load() {
				fn()
			}
		})
	})
	return func() {
		stopped.Store(true)
		timer.Stop()
	}
}

var (
	schedulerMu sync.RWMutex
	scheduler   Scheduler = realScheduler{}

	dispatchMu   sync.RWMutex
	dispatchFunc func(callback func())
)

// SetScheduler replaces the active scheduler. Returns the previous one so
// callers can restore it during cleanup. Pass nil to restore Go timers.
func SetScheduler(s Scheduler) Scheduler {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	prev := scheduler
	if s == nil {
		s = realScheduler{}
	}
	scheduler = s
	return prev
}

// CurrentScheduler returns the active scheduler. Operators capture it when
// they are subscribed, not when they are declared.
func CurrentScheduler() Scheduler {
	schedulerMu.RLock()
	defer schedulerMu.RUnlock()
	return scheduler
}

// RegisterDispatch sets the function used to move timer callbacks onto the
// UI thread. The engine registers its queue during start-up. Pass nil to
// run callbacks directly on the timer goroutine.
func RegisterDispatch(fn func(callback func())) {
	dispatchMu.Lock()
	dispatchFunc = fn
	dispatchMu.Unlock()
}

// Dispatch schedules callback on the UI thread, or runs it inline when no
// dispatcher is registered.
func Dispatch(callback func()) {
	if callback == nil {
		return
	}
	dispatchMu.RLock()
	fn := dispatchFunc
	dispatchMu.RUnlock()
	if fn == nil {
		callback()
		return
	}
	fn(callback)
}
