package core

import (
	"sync/atomic"

	"github.com/go-drift/rxdrift/pkg/errors"
)

// ErrorBoundaryCapture is implemented by elements that take over errors
// raised below them: build panics (*errors.BuildError) and terminated
// binding pipelines (*errors.PipelineError).
type ErrorBoundaryCapture interface {
	// CaptureError reports whether the element accepted err.
	CaptureError(err error) bool
}

// ErrorWidgetBuilder returns the widget shown in place of a failed build
// when no ErrorBoundary accepts the error. Returning nil shows nothing.
type ErrorWidgetBuilder func(err *errors.BuildError) Widget

var errorWidgetBuilder atomic.Pointer[ErrorWidgetBuilder]

// SetErrorWidgetBuilder installs the global error widget builder. Nil
// restores DefaultErrorWidgetBuilder.
func SetErrorWidgetBuilder(builder ErrorWidgetBuilder) {
	if builder == nil {
		errorWidgetBuilder.Store(nil)
		return
	}
	errorWidgetBuilder.Store(&builder)
}

// GetErrorWidgetBuilder returns the global error widget builder.
func GetErrorWidgetBuilder() ErrorWidgetBuilder {
	if b := errorWidgetBuilder.Load(); b != nil {
		return *b
	}
	return DefaultErrorWidgetBuilder
}

// DefaultErrorWidgetBuilder shows nothing; the error has already been
// reported to the global handler.
func DefaultErrorWidgetBuilder(*errors.BuildError) Widget {
	return nil
}

// ErrorBoundary catches errors from descendant widgets and displays a
// fallback instead of the failed subtree. It captures build panics and
// errors from binding pipelines bound with UseObservableState or
// UseEventCallback.
//
// Example:
//
//	core.ErrorBoundary{
//	    OnError: func(err error) {
//	        slog.Error("subtree failed", "err", err)
//	    },
//	    FallbackBuilder: func(err error) core.Widget {
//	        return core.Text{Content: "Failed to load"}
//	    },
//	    Child: Ticker{},
//	}
type ErrorBoundary struct {
	// Child is the widget tree to wrap with error handling.
	Child Widget
	// FallbackBuilder creates a widget to show when an error is caught.
	// If nil, nothing is shown.
	FallbackBuilder func(err error) Widget
	// OnError is called when an error is caught. Use for logging/analytics.
	OnError func(err error)
	// WidgetKey is an optional key for the widget. Changing the key forces
	// the ErrorBoundary to recreate its element, clearing any captured error.
	WidgetKey any
}

func (b ErrorBoundary) CreateElement() Element {
	element := &ErrorBoundaryElement{}
	element.widget = b
	element.setSelf(element)
	return element
}

func (b ErrorBoundary) Key() any {
	return b.WidgetKey
}

// ErrorBoundaryElement hosts an ErrorBoundary and implements ErrorBoundaryCapture.
type ErrorBoundaryElement struct {
	singleChild
	captured        error
	showingFallback bool
}

// RebuildIfNeeded shows the child, or the fallback once an error has been
// captured.
func (e *ErrorBoundaryElement) RebuildIfNeeded() {
	if !e.dirty || !e.mounted {
		return
	}
	e.dirty = false
	widget := e.widget.(ErrorBoundary)

	next := widget.Child
	if e.captured != nil {
		next = nil
		if widget.FallbackBuilder != nil {
			next = e.safeBuild(func() Widget {
				return widget.FallbackBuilder(e.captured)
			})
		}
	}
	// Switching between child and fallback never reuses elements, so the
	// failed subtree is discarded even for a fallback of the same type.
	if showFallback := e.captured != nil; showFallback != e.showingFallback {
		if e.child != nil {
			e.child.Unmount()
			e.child = nil
		}
		e.showingFallback = showFallback
	}
	e.child = updateChild(e.child, next, e, e.buildOwner)
}

// CaptureError implements ErrorBoundaryCapture. A boundary that is already
// showing its fallback declines further errors so they reach an outer one.
func (e *ErrorBoundaryElement) CaptureError(err error) bool {
	if !e.mounted || e.captured != nil {
		return false
	}
	e.captured = err
	if widget, ok := e.widget.(ErrorBoundary); ok && widget.OnError != nil {
		widget.OnError(err)
	}
	e.MarkNeedsBuild()
	return true
}

// Reset clears the captured error and rebuilds the child.
func (e *ErrorBoundaryElement) Reset() {
	if e.captured == nil {
		return
	}
	e.captured = nil
	e.MarkNeedsBuild()
}

// HasError returns true if this boundary has captured an error.
func (e *ErrorBoundaryElement) HasError() bool {
	return e.captured != nil
}

// Err returns the captured error, or nil if none.
func (e *ErrorBoundaryElement) Err() error {
	return e.captured
}

// ErrorBoundaryOf returns the nearest enclosing ErrorBoundary element, or nil.
func ErrorBoundaryOf(ctx BuildContext) *ErrorBoundaryElement {
	found := ctx.FindAncestor(func(e Element) bool {
		_, ok := e.(*ErrorBoundaryElement)
		return ok
	})
	if found == nil {
		return nil
	}
	return found.(*ErrorBoundaryElement)
}
