package core

// StatelessBase provides default CreateElement and Key implementations for
// stateless widgets. Embed it in your widget struct to satisfy the Widget
// interface without boilerplate:
//
//	type Greeting struct {
//	    core.StatelessBase
//	    Name string
//	}
//
//	func (g Greeting) Build(ctx core.BuildContext) core.Widget {
//	    return core.Text{Content: "Hello, " + g.Name}
//	}
type StatelessBase struct{}

// CreateElement returns a new StatelessElement.
func (StatelessBase) CreateElement() Element { return NewStatelessElement(nil, nil) }

// Key returns nil (no key).
func (StatelessBase) Key() any { return nil }

// StatefulBase provides default CreateElement and Key implementations for
// stateful widgets. Embed it in your widget struct to satisfy the Widget
// interface without boilerplate:
//
//	type Counter struct {
//	    core.StatefulBase
//	}
//
//	func (Counter) CreateState() core.State { return &counterState{} }
type StatefulBase struct{}

// CreateElement returns a new StatefulElement.
func (StatefulBase) CreateElement() Element { return NewStatefulElement(nil, nil) }

// Key returns nil (no key).
func (StatefulBase) Key() any { return nil }

// Stateful creates a stateful widget from a build function, for widgets
// whose only state lives in hooks:
//
//	widget := core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
//	    emit, count := core.UseEventCallback(s, binding.OnEvent(increment), binding.WithInitial(0))
//	    return Button{OnTap: func() { emit.Emit(struct{}{}) }, Label: fmt.Sprint(count.Value)}
//	})
//
// Rebuilding the parent with a new Stateful widget at the same position keeps
// the state and its hooks and runs the new build function.
//
// For widgets with lifecycle methods or several fields, embed [StatefulBase]
// in a named struct instead.
func Stateful(build func(s *StateBase, ctx BuildContext) Widget) Widget {
	return &inlineStatefulWidget{buildFn: build}
}

// StatefulWithKey is like Stateful but sets the widget key. Changing the key
// remounts the widget with fresh state.
func StatefulWithKey(key any, build func(s *StateBase, ctx BuildContext) Widget) Widget {
	return &inlineStatefulWidget{buildFn: build, key: key}
}

type inlineStatefulWidget struct {
	buildFn func(s *StateBase, ctx BuildContext) Widget
	key     any
}

func (w *inlineStatefulWidget) CreateElement() Element {
	return NewStatefulElement(w, nil)
}

func (w *inlineStatefulWidget) Key() any { return w.key }

func (w *inlineStatefulWidget) CreateState() State {
	return &inlineStatefulState{}
}

type inlineStatefulState struct {
	StateBase
}

func (s *inlineStatefulState) Build(ctx BuildContext) Widget {
	w := ctx.Widget().(*inlineStatefulWidget)
	if w.buildFn == nil {
		return nil
	}
	return w.buildFn(&s.StateBase, ctx)
}
