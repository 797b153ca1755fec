package core

import (
	"fmt"
	"sync"
)

// stateBase is satisfied by any struct that embeds StateBase.
// Hooks accept stateBase so callers can pass s directly.
type stateBase interface {
	state() *StateBase
}

func (s *StateBase) state() *StateBase { return s }

// StateBase implements State for embedding and owns the hook slots that
// UseObservableState, UseEventCallback, and the other hooks keep between
// builds. Everything it holds is released on Dispose.
//
//	type feedState struct {
//	    core.StateBase
//	}
//
//	func (s *feedState) Build(ctx core.BuildContext) core.Widget {
//	    items := core.UseObservableState(s, binding.Project(loadFeed))
//	    ...
//	}
type StateBase struct {
	element *StatefulElement

	mu        sync.Mutex
	disposers []func()
	disposed  bool

	// Hook slots, indexed by call order within Build.
	hooks     []any
	hookIndex int
	building  bool
	sealed    bool
}

// SetElement is called by the framework when the state is mounted.
func (s *StateBase) SetElement(element *StatefulElement) {
	s.element = element
}

// Element returns the hosting element, or nil before mount.
func (s *StateBase) Element() *StatefulElement {
	return s.element
}

// SetState runs fn and schedules a rebuild. It does nothing once disposed.
// Call it only on the UI thread; other goroutines go through the engine's
// Dispatch.
func (s *StateBase) SetState(fn func()) {
	if s.IsDisposed() {
		return
	}
	if fn != nil {
		fn()
	}
	if s.element != nil {
		s.element.MarkNeedsBuild()
	}
}

// OnDispose registers cleanup to run when the state is disposed, after
// every cleanup registered later. Registering on a disposed state runs
// cleanup at once. The returned function unregisters it.
func (s *StateBase) OnDispose(cleanup func()) (unregister func()) {
	if cleanup == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		cleanup()
		return func() {}
	}
	index := len(s.disposers)
	s.disposers = append(s.disposers, cleanup)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if index < len(s.disposers) {
			s.disposers[index] = nil
		}
		s.mu.Unlock()
	}
}

// RunDisposers runs the registered cleanups newest first and drops the hook
// slots. Later calls do nothing.
func (s *StateBase) RunDisposers() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		if disposers[i] != nil {
			disposers[i]()
		}
	}
	s.hooks = nil
}

// Dispose runs the disposers. States overriding it must call
// s.StateBase.Dispose().
func (s *StateBase) Dispose() { s.RunDisposers() }

// IsDisposed reports whether Dispose has run.
func (s *StateBase) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *StateBase) InitState() {}

func (s *StateBase) Build(ctx BuildContext) Widget { return nil }

func (s *StateBase) DidChangeDependencies() {}

func (s *StateBase) DidUpdateWidget(oldWidget StatefulWidget) {}

func (s *StateBase) beginBuild() {
	s.building = true
	s.hookIndex = 0
}

func (s *StateBase) endBuild() {
	s.building = false
	if !s.sealed && s.hookIndex == len(s.hooks) {
		s.sealed = true
	}
}

// useHook returns the value stored in the next hook slot, creating it on
// the first build. Outside Build it just calls create, which makes hooks
// usable once from InitState.
func useHook[T any](s *StateBase, create func() T) T {
	if !s.building {
		return create()
	}
	i := s.hookIndex
	s.hookIndex++
	if i < len(s.hooks) {
		h, ok := s.hooks[i].(T)
		if !ok {
			var want T
			panic(fmt.Sprintf("core: hook %d changed from %T to %T between builds", i, s.hooks[i], want))
		}
		return h
	}
	if s.sealed {
		panic(fmt.Sprintf("core: hook %d was not called in the first build; hooks must run unconditionally", i))
	}
	h := create()
	s.hooks = append(s.hooks, h)
	return h
}

// schedulePostBuild runs fn once the current frame's build pass finishes.
// Without a build owner it runs immediately.
func (s *StateBase) schedulePostBuild(fn func()) {
	if s.element != nil {
		if owner := s.element.owner(); owner != nil {
			owner.AddPostBuildCallback(fn)
			return
		}
	}
	fn()
}

// reportError offers err to the nearest error boundary above this state.
func (s *StateBase) reportError(err error) bool {
	if s.element == nil || !s.element.mounted {
		return false
	}
	return s.element.captureError(err)
}
