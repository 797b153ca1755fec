package core

import (
	"github.com/go-drift/rxdrift/pkg/binding"
)

// UseController creates a controller once per mounted state and registers it
// for automatic disposal. Called from Build, later builds return the same
// controller; called from InitState it simply creates and registers it.
//
// Example:
//
//	func (s *myState) Build(ctx core.BuildContext) core.Widget {
//	    poller := core.UseController(s, func() *Poller {
//	        return NewPoller(time.Second)
//	    })
//	    ...
//	}
func UseController[C Disposable](s stateBase, create func() C) C {
	base := s.state()
	return useHook(base, func() C {
		controller := create()
		base.OnDispose(controller.Dispose)
		return controller
	})
}

type storeHook[S any] struct {
	store    binding.Store[S]
	unsub    func()
	rendered *binding.Snapshot[S]
}

func (h *storeHook[S]) release() {
	if h.unsub != nil {
		unsub := h.unsub
		h.unsub = nil
		unsub()
	}
}

// UseSyncExternalStore reads store's snapshot for this build and, once the
// build commits, subscribes to it. The state rebuilds whenever the store
// reports a snapshot different from the one last rendered, including a
// change that lands between the build and the subscription.
//
// Passing a different store on a later build moves the subscription to it.
func UseSyncExternalStore[S any](s stateBase, store binding.Store[S]) *binding.Snapshot[S] {
	base := s.state()
	h := useHook(base, func() *storeHook[S] {
		h := &storeHook[S]{}
		base.OnDispose(h.release)
		return h
	})

	snapshot := store.Snapshot()
	h.rendered = snapshot

	if h.store != store {
		h.store = store
		base.schedulePostBuild(func() {
			if base.IsDisposed() || h.store != store {
				return
			}
			h.release()
			changed := func() {
				if store.Snapshot() != h.rendered {
					base.SetState(nil)
				}
			}
			h.unsub = store.Subscribe(changed)
			changed()
		})
	}
	return snapshot
}

type bindingHook[E, S any] struct {
	ctrl *binding.Controller[E, S]
}

func (h *bindingHook[E, S]) describe() binding.Description { return h.ctrl.Describe() }

// BindingsOf describes the bindings held by e's state, in hook order.
// Elements without hook-based state have none.
func BindingsOf(e Element) []binding.Description {
	se, ok := e.(*StatefulElement)
	if !ok || se.state == nil {
		return nil
	}
	hooks, ok := se.state.(stateBase)
	if !ok {
		return nil
	}
	var out []binding.Description
	for _, h := range hooks.state().hooks {
		if d, ok := h.(interface{ describe() binding.Description }); ok {
			out = append(out, d.describe())
		}
	}
	return out
}

// useBinding constructs the binding on the first build and forwards changed
// inputs on later ones. A factory panic is re-raised as a
// *binding.ConstructError so the build's recovery reports it.
func useBinding[E, S any](s stateBase, factory binding.Factory[E, S], opts []binding.Option) *binding.Controller[E, S] {
	base := s.state()
	h := useHook(base, func() *bindingHook[E, S] {
		all := make([]binding.Option, 0, len(opts)+1)
		all = append(all, binding.WithOnError(func(err error) { base.reportError(err) }))
		all = append(all, opts...)
		ctrl, err := binding.New(factory, all...)
		if err != nil {
			panic(err)
		}
		base.OnDispose(ctrl.Dispose)
		return &bindingHook[E, S]{ctrl: ctrl}
	})

	if inputs, ok := binding.ResolveInputs(opts...); ok && h.ctrl.InputsChanged(inputs) {
		base.schedulePostBuild(func() {
			h.ctrl.Update(inputs)
		})
	}
	return h.ctrl
}

// UseObservableState binds a projection pipeline to this state and returns
// the current snapshot. The pipeline is built once per mounted state; it is
// subscribed after the first build commits, so a pipeline that emits
// synchronously is first seen on the following build.
//
//	snap := core.UseObservableState(s, binding.ProjectWithInputs(
//	    func(_ stream.Observable[int], in stream.Observable[binding.Inputs]) stream.Observable[int] {
//	        return stream.SwitchMap(in, func(v binding.Inputs) stream.Observable[int] {
//	            return stream.Interval(v[0].(time.Duration))
//	        })
//	    }), binding.WithInputs(w.Period))
//	if n, ok := snap.Get(); ok {
//	    ...
//	}
func UseObservableState[S any](s stateBase, factory binding.Factory[binding.NoEvent, S], opts ...binding.Option) *binding.Snapshot[S] {
	ctrl := useBinding(s, factory, opts)
	return UseSyncExternalStore[S](s, ctrl)
}

// UseEventCallback binds an event-triggered pipeline to this state. It
// returns the emitter that feeds the event channel, stable for the life of
// the state, and the current snapshot.
func UseEventCallback[E, S any](s stateBase, factory binding.Factory[E, S], opts ...binding.Option) (*binding.Emitter[E], *binding.Snapshot[S]) {
	ctrl := useBinding(s, factory, opts)
	return ctrl.Emitter(), UseSyncExternalStore[S](s, ctrl)
}
