// Package core provides the widget and element framework that hosts bindings.
//
// Widgets are immutable descriptions of part of the UI. Elements are their
// instantiations at a position in the tree and own the lifecycle: a
// StatefulElement creates its State on mount, calls DidUpdateWidget and
// rebuilds when its parent supplies a new widget, and disposes the State on
// unmount. A BuildOwner collects dirty elements and runs them in depth order,
// then runs post-build callbacks queued during the pass.
//
// # Stateful Widgets
//
// Embed StateBase in your state struct:
//
//	type tickerState struct {
//	    core.StateBase
//	}
//
//	func (s *tickerState) Build(ctx core.BuildContext) core.Widget {
//	    w := ctx.Widget().(Ticker)
//	    ticks := core.UseObservableState(s, binding.ProjectWithInputs(countTicks),
//	        binding.WithInitial(0), binding.WithInputs(w.Period))
//	    return core.Text{Content: fmt.Sprint(ticks.Value)}
//	}
//
// # Hooks
//
// Hooks keep per-state values across builds. They are matched to slots by
// call order, so a Build must call the same hooks in the same order every
// time.
//
//   - UseObservableState binds a projection pipeline and returns its snapshot.
//   - UseEventCallback binds an event-triggered pipeline and returns its
//     emitter and snapshot.
//   - UseSyncExternalStore subscribes to any binding.Store after the build
//     commits and rebuilds when its snapshot changes.
//   - UseController creates a Disposable once and disposes it with the state.
//
// # Errors
//
// A panic during Build is reported as an errors.BuildError and offered to
// the nearest ErrorBoundary. A binding whose pipeline errors reports an
// errors.PipelineError, keeps its last snapshot, and is routed to the same
// boundary.
package core
