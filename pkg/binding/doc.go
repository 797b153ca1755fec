// Package binding connects a stream pipeline to a pull-based render cycle.
//
// A [Controller] owns one binding instance: the channels handed to the
// caller's pipeline factory, the pipeline built from them, the single live
// subscription, and the latest [Snapshot]. It knows nothing about widgets;
// the host framework drives it through three calls:
//
//   - [New] once per mounted instance (builds the pipeline exactly once),
//   - [Controller.Update] on every render with the current input tuple,
//   - [Controller.Dispose] once on unmount.
//
// Between those, the host reads values through the [Store] contract
// (Subscribe/Snapshot), which mirrors an external-store integration: each
// emission is written to the state channel before the host's change
// callback runs, so a Snapshot read from inside the callback already sees
// the new value.
//
// # Factory shapes
//
// The caller picks one of four pipeline shapes by choosing a constructor:
//
//	binding.Project(func(state$) output$)
//	binding.ProjectWithInputs(func(state$, inputs$) output$)
//	binding.OnEvent(func(event$, state$) output$)
//	binding.OnEventWithInputs(func(event$, state$, inputs$) output$)
//
// The shape is fixed when the Factory is created and decides which channels
// the controller allocates.
package binding
