package core_test

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-drift/rxdrift/pkg/binding"
	"github.com/go-drift/rxdrift/pkg/core"
	"github.com/go-drift/rxdrift/pkg/stream"
)

// This example binds a projection pipeline to an inline stateful widget.
// The pipeline is subscribed once the first build commits, so the value it
// emits synchronously shows up on the following frame.
func ExampleUseObservableState() {
	owner := core.NewBuildOwner()
	root := core.MountRoot(core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
		snap := core.UseObservableState(s, binding.Project(func(stream.Observable[int]) stream.Observable[int] {
			return stream.Of(100)
		}))
		if v, ok := snap.Get(); ok {
			return core.Text{Content: strconv.Itoa(v)}
		}
		return core.Text{Content: "null"}
	}), owner)
	fmt.Println(core.CollectText(root))

	owner.Flush() // subscribe
	owner.Flush() // rebuild with the emitted value
	fmt.Println(core.CollectText(root))

	// Output:
	// [null]
	// [100]
}

// This example shows an event-driven counter. The emitter is stable for the
// life of the state, so it can be handed to event handlers freely.
func ExampleUseEventCallback() {
	var emit *binding.Emitter[int]

	owner := core.NewBuildOwner()
	root := core.MountRoot(core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
		emitter, count := core.UseEventCallback(s, binding.OnEvent(
			func(events stream.Observable[int], state stream.Observable[int]) stream.Observable[int] {
				return stream.Map(stream.WithLatestFrom(events, state), func(p stream.Pair[int, int]) int {
					return p.Second + p.First
				})
			}), binding.WithInitial(0))
		emit = emitter
		return core.Text{Content: "count: " + strconv.Itoa(count.Value)}
	}), owner)
	owner.Flush()

	emit.Emit(1)
	emit.Emit(5)
	owner.Flush()
	fmt.Println(core.CollectText(root))

	// Output:
	// [count: 6]
}

// This example routes a failing pipeline to the nearest ErrorBoundary.
func ExampleErrorBoundary() {
	owner := core.NewBuildOwner()
	root := core.MountRoot(core.ErrorBoundary{
		FallbackBuilder: func(err error) core.Widget {
			return core.Text{Content: err.Error()}
		},
		Child: core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
			snap := core.UseObservableState(s, binding.Project(func(stream.Observable[string]) stream.Observable[string] {
				return stream.Throw[string](errors.New("offline"))
			}), binding.WithName("feed"))
			if !snap.Valid {
				return core.Text{Content: "loading"}
			}
			return core.Text{Content: snap.Value}
		}),
	}, owner)
	fmt.Println(core.CollectText(root))

	owner.Flush() // subscribe; the pipeline fails
	owner.Flush() // the boundary shows its fallback
	fmt.Println(core.CollectText(root))

	// Output:
	// [loading]
	// [pipeline feed (projection) failed: offline]
}

// This example shows that the inline widget's state survives a parent
// rebuild while the new build function is used.
func ExampleStateful() {
	builds := 0
	label := func(prefix string) core.Widget {
		return core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
			builds++
			return core.Text{Content: prefix + strconv.Itoa(builds)}
		})
	}

	owner := core.NewBuildOwner()
	root := core.MountRoot(core.Column{Children: []core.Widget{label("a")}}, owner)
	fmt.Println(core.CollectText(root))

	root.Update(core.Column{Children: []core.Widget{label("b")}})
	owner.Flush()
	fmt.Println(core.CollectText(root))

	// Output:
	// [a1]
	// [b2]
}

// This example shows the lifecycle of a StateBase outside the tree.
func ExampleStateBase() {
	state := &core.StateBase{}
	state.OnDispose(func() { fmt.Println("first registered") })
	state.OnDispose(func() { fmt.Println("second registered") })

	state.Dispose()
	fmt.Println("disposed:", state.IsDisposed())

	// Output:
	// second registered
	// first registered
	// disposed: true
}
