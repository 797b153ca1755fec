package core

import (
	"reflect"
	"time"

	"github.com/go-drift/rxdrift/pkg/errors"
)

// elementBase carries the bookkeeping every element shares. Concrete
// elements embed it and set self so the base can call back into them.
type elementBase struct {
	widget     Widget
	parent     Element
	depth      int
	slot       any
	buildOwner *BuildOwner
	dirty      bool
	self       Element
	mounted    bool
}

func (e *elementBase) Widget() Widget { return e.widget }

func (e *elementBase) Depth() int { return e.depth }

// NeedsBuild reports whether the element is waiting for a rebuild.
func (e *elementBase) NeedsBuild() bool { return e.dirty }

// Mount attaches the element under parent and builds it.
func (e *elementBase) Mount(parent Element, slot any) {
	e.mount(parent, slot)
	e.self.RebuildIfNeeded()
}

// Update swaps in a widget of the same type and key, rebuilding on the
// next flush.
func (e *elementBase) Update(newWidget Widget) {
	e.widget = newWidget
	e.MarkNeedsBuild()
}

func (e *elementBase) MarkNeedsBuild() {
	if e.dirty || !e.mounted {
		return
	}
	e.dirty = true
	if e.buildOwner != nil && e.self != nil {
		e.buildOwner.ScheduleBuild(e.self)
	}
}

func (e *elementBase) FindAncestor(predicate func(Element) bool) Element {
	for current := e.parent; current != nil; current = parentOf(current) {
		if predicate(current) {
			return current
		}
	}
	return nil
}

func parentOf(e Element) Element {
	if p, ok := e.(interface{ parentElement() Element }); ok {
		return p.parentElement()
	}
	return nil
}

func (e *elementBase) parentElement() Element { return e.parent }

func (e *elementBase) setSelf(self Element) { e.self = self }

func (e *elementBase) setWidget(widget Widget) { e.widget = widget }

func (e *elementBase) setBuildOwner(owner *BuildOwner) { e.buildOwner = owner }

func (e *elementBase) owner() *BuildOwner { return e.buildOwner }

func (e *elementBase) isMounted() bool { return e.mounted }

func (e *elementBase) mount(parent Element, slot any) {
	e.parent = parent
	e.slot = slot
	if parent != nil {
		e.depth = parent.Depth() + 1
	}
	e.mounted = true
	e.dirty = true
}

// safeBuild runs buildFn, turning a panic into a reported *errors.BuildError.
// The error goes to the nearest boundary that accepts it, in which case
// nothing is built here; otherwise the global error widget is shown.
func (e *elementBase) safeBuild(buildFn func() Widget) (built Widget) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		buildErr := &errors.BuildError{
			Widget:     reflect.TypeOf(e.widget).String(),
			Element:    reflect.TypeOf(e.self).String(),
			Recovered:  r,
			StackTrace: errors.CaptureStack(),
			Timestamp:  time.Now(),
		}
		errors.ReportBuildError(buildErr)

		built = nil
		if e.captureError(buildErr) {
			return
		}
		if errWidget := GetErrorWidgetBuilder()(buildErr); errWidget != nil {
			built = errWidget
			return
		}
		built = errorPlaceholder{err: buildErr}
	}()
	return buildFn()
}

// captureError offers err to each ancestor boundary, nearest first, until
// one accepts it.
func (e *elementBase) captureError(err error) bool {
	for current := e.parent; current != nil; current = parentOf(current) {
		if capture, ok := current.(ErrorBoundaryCapture); ok && capture.CaptureError(err) {
			return true
		}
	}
	return false
}

// errorPlaceholder stands in for a failed build when the error widget
// builder returns nothing. It renders nothing.
type errorPlaceholder struct {
	err *errors.BuildError
}

func (p errorPlaceholder) CreateElement() Element { return NewStatelessElement(p, nil) }

func (p errorPlaceholder) Key() any { return nil }

func (p errorPlaceholder) Build(BuildContext) Widget { return nil }

// singleChild is embedded by elements hosting at most one child.
type singleChild struct {
	elementBase
	child Element
}

func (e *singleChild) VisitChildren(visitor func(Element) bool) {
	if e.child != nil {
		visitor(e.child)
	}
}

func (e *singleChild) Unmount() {
	e.mounted = false
	if e.child != nil {
		e.child.Unmount()
		e.child = nil
	}
}

// rebuild runs build when the element is dirty and reconciles the result
// with the current child.
func (e *singleChild) rebuild(build func() Widget) {
	if !e.dirty || !e.mounted {
		return
	}
	e.dirty = false
	e.child = updateChild(e.child, e.safeBuild(build), e.self, e.buildOwner)
}

// StatelessElement hosts a StatelessWidget.
type StatelessElement struct {
	singleChild
}

func NewStatelessElement(widget StatelessWidget, owner *BuildOwner) *StatelessElement {
	element := &StatelessElement{}
	element.widget = widget
	element.buildOwner = owner
	element.setSelf(element)
	return element
}

func (e *StatelessElement) RebuildIfNeeded() {
	e.rebuild(func() Widget {
		return e.widget.(StatelessWidget).Build(e)
	})
}

// StatefulElement hosts a StatefulWidget and its State.
type StatefulElement struct {
	singleChild
	state State
}

func NewStatefulElement(widget StatefulWidget, owner *BuildOwner) *StatefulElement {
	element := &StatefulElement{}
	element.widget = widget
	element.buildOwner = owner
	element.setSelf(element)
	return element
}

// State returns the element's state object.
func (e *StatefulElement) State() State {
	return e.state
}

// Mount creates the state, runs InitState, and performs the first build.
func (e *StatefulElement) Mount(parent Element, slot any) {
	e.mount(parent, slot)
	e.state = e.widget.(StatefulWidget).CreateState()
	if setter, ok := e.state.(interface{ SetElement(*StatefulElement) }); ok {
		setter.SetElement(e)
	}
	e.state.InitState()
	e.RebuildIfNeeded()
}

// Update hands the new widget to the state via DidUpdateWidget.
func (e *StatefulElement) Update(newWidget Widget) {
	oldWidget := e.widget.(StatefulWidget)
	e.widget = newWidget
	e.state.DidUpdateWidget(oldWidget)
	e.MarkNeedsBuild()
}

// Unmount tears down the subtree, then disposes the state, which releases
// every hook the state registered.
func (e *StatefulElement) Unmount() {
	e.singleChild.Unmount()
	if e.state != nil {
		e.state.Dispose()
	}
}

// RebuildIfNeeded builds the state. States embedding StateBase get their
// hook slots reset around the call.
func (e *StatefulElement) RebuildIfNeeded() {
	e.rebuild(func() Widget {
		hooks, ok := e.state.(stateBase)
		if !ok {
			return e.state.Build(e)
		}
		base := hooks.state()
		base.beginBuild()
		defer base.endBuild()
		return e.state.Build(e)
	})
}

// updateChild reconciles existing with widget: it updates in place when the
// type and key match, and otherwise replaces or removes the child.
func updateChild(existing Element, widget Widget, parent Element, owner *BuildOwner) Element {
	switch {
	case widget == nil:
		if existing != nil {
			existing.Unmount()
		}
		return nil
	case existing != nil && canUpdateWidget(existing.Widget(), widget):
		existing.Update(widget)
		return existing
	case existing != nil:
		existing.Unmount()
	}
	element := inflateWidget(widget, owner)
	element.Mount(parent, nil)
	return element
}

func canUpdateWidget(existing Widget, next Widget) bool {
	if existing == nil || next == nil {
		return false
	}
	return reflect.TypeOf(existing) == reflect.TypeOf(next) &&
		reflect.DeepEqual(existing.Key(), next.Key())
}

func inflateWidget(widget Widget, owner *BuildOwner) Element {
	if widget == nil {
		return nil
	}
	element := widget.CreateElement()
	if setter, ok := element.(interface{ setWidget(Widget) }); ok {
		setter.setWidget(widget)
	}
	if setter, ok := element.(interface{ setBuildOwner(*BuildOwner) }); ok {
		setter.setBuildOwner(owner)
	}
	if setter, ok := element.(interface{ setSelf(Element) }); ok {
		setter.setSelf(element)
	}
	return element
}

// MountRoot inflates widget as the root of a new tree owned by owner
// and performs its first build.
func MountRoot(widget Widget, owner *BuildOwner) Element {
	element := inflateWidget(widget, owner)
	if element == nil {
		return nil
	}
	element.Mount(nil, nil)
	return element
}
