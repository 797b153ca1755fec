package core

// Widget is an immutable description of part of the UI.
type Widget interface {
	// CreateElement returns the element that will host this widget.
	CreateElement() Element
	// Key distinguishes widgets of the same type at the same position.
	// Two widgets match when their types and keys are equal.
	Key() any
}

// StatelessWidget builds its child purely from its own configuration.
type StatelessWidget interface {
	Widget
	Build(ctx BuildContext) Widget
}

// StatefulWidget owns a State that survives rebuilds.
type StatefulWidget interface {
	Widget
	CreateState() State
}

// State is the mutable half of a StatefulWidget.
// Embed StateBase to get default implementations of everything except Build.
type State interface {
	InitState()
	Build(ctx BuildContext) Widget
	SetState(fn func())
	Dispose()
	DidChangeDependencies()
	DidUpdateWidget(oldWidget StatefulWidget)
}

// BuildContext gives a widget access to its position in the tree.
type BuildContext interface {
	Widget() Widget
	FindAncestor(predicate func(Element) bool) Element
}

// Element is an instantiation of a Widget at a location in the tree.
type Element interface {
	BuildContext
	Mount(parent Element, slot any)
	Update(newWidget Widget)
	Unmount()
	RebuildIfNeeded()
	MarkNeedsBuild()
	Depth() int
	VisitChildren(visitor func(Element) bool)
}

// Disposable is implemented by controllers that hold resources.
type Disposable interface {
	Dispose()
}
