// Package errors provides structured error handling for rxdrift bindings and
// the widget framework that hosts them.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPipeline indicates a stream pipeline terminated with an error.
	KindPipeline
	// KindScheduler indicates a timer callback failed off the UI thread.
	KindScheduler
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindBuild indicates a build-time widget error.
	KindBuild
)

func (k ErrorKind) String() string {
	switch k {
	case KindPipeline:
		return "pipeline"
	case KindScheduler:
		return "scheduler"
	case KindPanic:
		return "panic"
	case KindBuild:
		return "build"
	default:
		return "unknown"
	}
}

// DriftError is a failure outside a build or a pipeline, such as a timer
// callback that panicked. Op names where it happened ("stream.Delay") and
// Binding, when set, the binding that owned the work.
type DriftError struct {
	Op         string
	Kind       ErrorKind
	Err        error
	Binding    string
	StackTrace string
	Timestamp  time.Time
}

func (e *DriftError) Error() string {
	if e.Binding != "" {
		return fmt.Sprintf("%s [%s] binding=%s: %v", e.Op, e.Kind, e.Binding, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *DriftError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered in Op ("engine.StepFrame").
type PanicError struct {
	Op         string
	Value      any
	StackTrace string
	Timestamp  time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// PipelineError is raised when a bound pipeline emits an error. The binding
// stops updating its snapshot once this happens.
type PipelineError struct {
	// Binding is the binding name.
	Binding string
	// BindingKind is the factory shape the binding was built with.
	BindingKind string
	// Err is the error the pipeline emitted.
	Err error
	// Timestamp is when the error was observed.
	Timestamp time.Time
}

func (e *PipelineError) Error() string {
	if e.Binding != "" {
		return fmt.Sprintf("pipeline %s (%s) failed: %v", e.Binding, e.BindingKind, e.Err)
	}
	return fmt.Sprintf("pipeline failed: %v", e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// BuildError is a Build call that panicked or failed. Widget and Element
// are type names. Exactly one of Recovered and Err is normally set; a
// binding whose factory panicked arrives here with a *binding.ConstructError
// as Recovered.
type BuildError struct {
	Widget     string
	Element    string
	Recovered  any
	Err        error
	StackTrace string
	Timestamp  time.Time
}

func (e *BuildError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s.Build(): %v", e.Widget, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s.Build(): %v", e.Widget, e.Err)
	}
	return fmt.Sprintf("unknown error in %s.Build()", e.Widget)
}

// Unwrap returns the underlying error. When the build panicked with an error
// value, that value is returned so errors.As can reach it.
func (e *BuildError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}

// ErrorHandler receives every error reported through this package. Calls
// arrive on the goroutine that hit the error, which is usually the UI
// thread.
type ErrorHandler interface {
	HandleError(err *DriftError)
	HandlePanic(err *PanicError)
	HandleBuildError(err *BuildError)
	HandlePipelineError(err *PipelineError)
}
