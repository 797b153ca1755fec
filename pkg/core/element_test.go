package core

import (
	stderrors "errors"
	"testing"

	"github.com/go-drift/rxdrift/pkg/errors"
)

// testStatelessWidget is a simple stateless widget for testing.
type testStatelessWidget struct {
	buildFn func(BuildContext) Widget
}

func (w testStatelessWidget) CreateElement() Element {
	return NewStatelessElement(w, nil)
}

func (w testStatelessWidget) Key() any {
	return nil
}

func (w testStatelessWidget) Build(ctx BuildContext) Widget {
	if w.buildFn != nil {
		return w.buildFn(ctx)
	}
	return nil
}

// testStatefulWidget is a simple stateful widget for testing.
type testStatefulWidget struct {
	key           any
	createStateFn func() State
}

func (w testStatefulWidget) CreateElement() Element {
	return NewStatefulElement(w, nil)
}

func (w testStatefulWidget) Key() any {
	return w.key
}

func (w testStatefulWidget) CreateState() State {
	if w.createStateFn != nil {
		return w.createStateFn()
	}
	return &testState{}
}

type testState struct {
	StateBase
	buildFn    func(BuildContext) Widget
	updates    int
	disposedFn func()
}

func (s *testState) Build(ctx BuildContext) Widget {
	if s.buildFn != nil {
		return s.buildFn(ctx)
	}
	return nil
}

func (s *testState) DidUpdateWidget(StatefulWidget) {
	s.updates++
}

func (s *testState) Dispose() {
	if s.disposedFn != nil {
		s.disposedFn()
	}
	s.StateBase.Dispose()
}

// testLeafWidget renders nothing and carries a key.
type testLeafWidget struct {
	key any
	id  string
}

func (w testLeafWidget) CreateElement() Element        { return NewStatelessElement(w, nil) }
func (w testLeafWidget) Key() any                      { return w.key }
func (w testLeafWidget) Build(ctx BuildContext) Widget { return nil }

// testErrorHandler captures errors for testing.
type testErrorHandler struct {
	errors.LogHandler
	buildErrors    []*errors.BuildError
	pipelineErrors []*errors.PipelineError
}

func (h *testErrorHandler) HandleBuildError(err *errors.BuildError) {
	h.buildErrors = append(h.buildErrors, err)
}

func (h *testErrorHandler) HandlePipelineError(err *errors.PipelineError) {
	h.pipelineErrors = append(h.pipelineErrors, err)
}

func useTestHandler(t *testing.T) *testErrorHandler {
	t.Helper()
	handler := &testErrorHandler{}
	errors.SetHandler(handler)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return handler
}

func TestStatelessElement_BuildPanic_ReportsError(t *testing.T) {
	handler := useTestHandler(t)

	widget := testStatelessWidget{
		buildFn: func(ctx BuildContext) Widget {
			panic("test panic in stateless build")
		},
	}

	owner := NewBuildOwner()
	element := NewStatelessElement(widget, owner)
	element.Mount(nil, nil)

	if len(handler.buildErrors) != 1 {
		t.Fatalf("expected 1 build error, got %d", len(handler.buildErrors))
	}

	err := handler.buildErrors[0]
	if err.Recovered != "test panic in stateless build" {
		t.Errorf("expected panic value 'test panic in stateless build', got %v", err.Recovered)
	}
	if err.Widget == "" {
		t.Error("expected Widget type to be set")
	}
	if err.StackTrace == "" {
		t.Error("expected StackTrace to be captured")
	}
}

func TestStatefulElement_BuildPanic_ReportsError(t *testing.T) {
	handler := useTestHandler(t)

	widget := testStatefulWidget{
		createStateFn: func() State {
			return &testState{
				buildFn: func(ctx BuildContext) Widget {
					panic("test panic in stateful build")
				},
			}
		},
	}

	owner := NewBuildOwner()
	element := NewStatefulElement(widget, owner)
	element.Mount(nil, nil)

	if len(handler.buildErrors) != 1 {
		t.Fatalf("expected 1 build error, got %d", len(handler.buildErrors))
	}
	if got := handler.buildErrors[0].Recovered; got != "test panic in stateful build" {
		t.Errorf("expected panic value 'test panic in stateful build', got %v", got)
	}
}

func TestSafeBuild_ReturnsErrorPlaceholder_WhenNoBuilder(t *testing.T) {
	useTestHandler(t)

	widget := testStatelessWidget{
		buildFn: func(ctx BuildContext) Widget {
			panic("test panic")
		},
	}

	owner := NewBuildOwner()
	element := NewStatelessElement(widget, owner)
	element.Mount(nil, nil)

	if element.child == nil {
		t.Fatal("expected child element to be set")
	}
	if _, ok := element.child.Widget().(errorPlaceholder); !ok {
		t.Errorf("expected errorPlaceholder widget, got %T", element.child.Widget())
	}
}

func TestSafeBuild_UsesCustomBuilder(t *testing.T) {
	var capturedErr *errors.BuildError
	SetErrorWidgetBuilder(func(err *errors.BuildError) Widget {
		capturedErr = err
		return testLeafWidget{id: "fallback"}
	})
	defer SetErrorWidgetBuilder(nil)
	useTestHandler(t)

	widget := testStatelessWidget{
		buildFn: func(ctx BuildContext) Widget {
			panic("custom builder test")
		},
	}

	owner := NewBuildOwner()
	element := NewStatelessElement(widget, owner)
	element.Mount(nil, nil)

	if capturedErr == nil {
		t.Fatal("expected custom builder to be called")
	}
	if capturedErr.Recovered != "custom builder test" {
		t.Errorf("expected panic value 'custom builder test', got %v", capturedErr.Recovered)
	}
	if leaf, ok := element.child.Widget().(testLeafWidget); !ok || leaf.id != "fallback" {
		t.Errorf("expected fallback child, got %T", element.child.Widget())
	}
}

func TestSetErrorWidgetBuilder_NilRestoresDefault(t *testing.T) {
	SetErrorWidgetBuilder(func(err *errors.BuildError) Widget {
		return testStatelessWidget{}
	})
	SetErrorWidgetBuilder(nil)

	builder := GetErrorWidgetBuilder()
	if builder == nil {
		t.Fatal("expected non-nil builder after SetErrorWidgetBuilder(nil)")
	}
	if result := builder(&errors.BuildError{Widget: "test"}); result != nil {
		t.Errorf("expected default builder to return nil, got %v", result)
	}
}

func TestStatefulElement_Lifecycle(t *testing.T) {
	owner := NewBuildOwner()
	builds, disposed := 0, 0
	state := &testState{
		buildFn:    func(BuildContext) Widget { builds++; return nil },
		disposedFn: func() { disposed++ },
	}
	element := NewStatefulElement(testStatefulWidget{createStateFn: func() State { return state }}, owner)
	element.Mount(nil, nil)

	if builds != 1 {
		t.Fatalf("expected 1 build after mount, got %d", builds)
	}
	if element.State() != state || state.Element() != element {
		t.Fatal("state and element should reference each other")
	}

	element.Update(testStatefulWidget{createStateFn: func() State { return state }})
	owner.FlushBuild()
	if state.updates != 1 || builds != 2 {
		t.Errorf("expected DidUpdateWidget and rebuild, got updates=%d builds=%d", state.updates, builds)
	}

	state.SetState(nil)
	state.SetState(nil)
	owner.FlushBuild()
	if builds != 3 {
		t.Errorf("expected coalesced rebuild, got %d builds", builds)
	}

	element.Unmount()
	if disposed != 1 || !state.IsDisposed() {
		t.Errorf("expected dispose on unmount, got %d", disposed)
	}

	state.SetState(nil)
	if owner.NeedsWork() {
		t.Error("SetState after dispose should not schedule work")
	}
}

func TestBuildOwner_FlushesInDepthOrder(t *testing.T) {
	owner := NewBuildOwner()
	var order []string

	var childState *testState
	child := testStatefulWidget{createStateFn: func() State {
		childState = &testState{buildFn: func(BuildContext) Widget { order = append(order, "child"); return nil }}
		return childState
	}}
	var parentState *testState
	parent := testStatefulWidget{createStateFn: func() State {
		parentState = &testState{buildFn: func(BuildContext) Widget { order = append(order, "parent"); return child }}
		return parentState
	}}

	MountRoot(parent, owner)
	order = nil

	childState.SetState(nil)
	parentState.SetState(nil)
	owner.FlushBuild()

	if len(order) != 2 || order[0] != "parent" || order[1] != "child" {
		t.Errorf("expected [parent child], got %v", order)
	}
}

func TestBuildOwner_PostBuildCallbacks(t *testing.T) {
	useTestHandler(t)
	owner := NewBuildOwner()
	frames := 0
	owner.OnNeedsFrame = func() { frames++ }

	var order []int
	owner.AddPostBuildCallback(func() {
		order = append(order, 1)
		owner.AddPostBuildCallback(func() { order = append(order, 3) })
	})
	owner.AddPostBuildCallback(func() { panic("boom") })
	owner.AddPostBuildCallback(func() { order = append(order, 2) })

	if !owner.NeedsWork() {
		t.Fatal("expected pending post-build work")
	}
	owner.Flush()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", order)
	}
	if owner.NeedsWork() {
		t.Error("expected no work after flush")
	}
	if frames != 4 {
		t.Errorf("expected 4 frame requests, got %d", frames)
	}
}

func TestErrorBoundary_CapturesBuildPanic(t *testing.T) {
	useTestHandler(t)
	owner := NewBuildOwner()
	var caught error

	root := MountRoot(ErrorBoundary{
		OnError: func(err error) { caught = err },
		FallbackBuilder: func(err error) Widget {
			return testLeafWidget{id: "fallback"}
		},
		Child: testStatelessWidget{buildFn: func(BuildContext) Widget {
			panic("child failed")
		}},
	}, owner)
	owner.FlushBuild()

	boundary := root.(*ErrorBoundaryElement)
	if !boundary.HasError() {
		t.Fatal("expected boundary to capture the error")
	}
	var buildErr *errors.BuildError
	if !stderrors.As(caught, &buildErr) || buildErr.Recovered != "child failed" {
		t.Errorf("unexpected captured error %v", caught)
	}
	if leaf, ok := boundary.child.Widget().(testLeafWidget); !ok || leaf.id != "fallback" {
		t.Errorf("expected fallback child, got %T", boundary.child.Widget())
	}

	boundary.Reset()
	owner.FlushBuild()
	if !boundary.HasError() {
		t.Error("child panics again after reset, so the boundary should hold a new error")
	}
}

func TestErrorBoundary_NestedDeclinesSecondError(t *testing.T) {
	useTestHandler(t)
	owner := NewBuildOwner()
	outerCaught := 0

	MountRoot(ErrorBoundary{
		OnError: func(error) { outerCaught++ },
		Child: ErrorBoundary{
			FallbackBuilder: func(err error) Widget {
				return testStatelessWidget{buildFn: func(BuildContext) Widget {
					panic("fallback failed too")
				}}
			},
			Child: testStatelessWidget{buildFn: func(BuildContext) Widget {
				panic("child failed")
			}},
		},
	}, owner)
	owner.FlushBuild()

	if outerCaught != 1 {
		t.Errorf("expected the outer boundary to catch the fallback failure, got %d", outerCaught)
	}
}

func TestErrorBoundaryOf(t *testing.T) {
	owner := NewBuildOwner()
	var found *ErrorBoundaryElement
	root := MountRoot(ErrorBoundary{
		Child: testStatelessWidget{buildFn: func(ctx BuildContext) Widget {
			found = ErrorBoundaryOf(ctx)
			return nil
		}},
	}, owner)

	if found == nil || found != root {
		t.Errorf("expected to find the root boundary, got %v", found)
	}
}

func TestCanUpdateWidget_SameTypeSameKey(t *testing.T) {
	w1 := testLeafWidget{key: "same", id: "1"}
	w2 := testLeafWidget{key: "same", id: "2"}

	if !canUpdateWidget(w1, w2) {
		t.Error("expected canUpdateWidget to return true for same type and key")
	}
}

func TestCanUpdateWidget_SameTypeDifferentKey(t *testing.T) {
	w1 := testLeafWidget{key: "a", id: "1"}
	w2 := testLeafWidget{key: "b", id: "2"}

	if canUpdateWidget(w1, w2) {
		t.Error("expected canUpdateWidget to return false for different keys")
	}
}

func TestCanUpdateWidget_DifferentType(t *testing.T) {
	w1 := testLeafWidget{id: "leaf"}
	w2 := testStatelessWidget{}

	if canUpdateWidget(w1, w2) {
		t.Error("expected canUpdateWidget to return false for different types")
	}
}

func TestUpdateChild_KeyChangeRemounts(t *testing.T) {
	owner := NewBuildOwner()
	disposed := 0
	newChild := func(key string) Widget {
		return testStatefulWidget{key: key, createStateFn: func() State {
			return &testState{disposedFn: func() { disposed++ }}
		}}
	}

	parent := NewStatelessElement(testStatelessWidget{}, owner)
	parent.Mount(nil, nil)

	first := updateChild(nil, newChild("a"), parent, owner)
	same := updateChild(first, newChild("a"), parent, owner)
	if same != first || disposed != 0 {
		t.Fatal("same key should reuse the element")
	}

	replaced := updateChild(first, newChild("b"), parent, owner)
	if replaced == first || disposed != 1 {
		t.Errorf("key change should remount, disposed=%d", disposed)
	}

	if updateChild(replaced, nil, parent, owner) != nil || disposed != 2 {
		t.Errorf("nil widget should unmount, disposed=%d", disposed)
	}
}
