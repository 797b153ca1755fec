package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler receives every reported error. It defaults to a
	// LogHandler writing through slog.Default().
	DefaultHandler ErrorHandler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler replaces the global error handler. Nil restores the default
// LogHandler.
func SetHandler(h ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	handlerMu.Lock()
	DefaultHandler = h
	handlerMu.Unlock()
}

// deliver hands the current handler to fn, if one is installed.
func deliver(fn func(ErrorHandler)) {
	handlerMu.RLock()
	h := DefaultHandler
	handlerMu.RUnlock()
	if h != nil {
		fn(h)
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

// Report sends err to the global handler, stamping it if needed.
func Report(err *DriftError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	deliver(func(h ErrorHandler) { h.HandleError(err) })
}

// ReportPanic sends a recovered panic to the global handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	deliver(func(h ErrorHandler) { h.HandlePanic(err) })
}

// ReportBuildError sends a failed build to the global handler.
func ReportBuildError(err *BuildError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	deliver(func(h ErrorHandler) { h.HandleBuildError(err) })
}

// ReportPipelineError sends a failed binding pipeline to the global handler.
func ReportPipelineError(err *PipelineError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	deliver(func(h ErrorHandler) { h.HandlePipelineError(err) })
}

// Recover reports a panic in progress as a PanicError and stops it.
// It must be deferred directly:
//
//	defer errors.Recover("core.postBuild")
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(newPanic(op, r))
	}
}

// RecoverTimer is Recover for callbacks running on a timer goroutine. The
// panic is reported as a scheduler DriftError wrapping the PanicError.
func RecoverTimer(op string) {
	if r := recover(); r != nil {
		perr := newPanic(op, r)
		Report(&DriftError{
			Op:         op,
			Kind:       KindScheduler,
			Err:        perr,
			StackTrace: perr.StackTrace,
			Timestamp:  perr.Timestamp,
		})
	}
}

func newPanic(op string, value any) *PanicError {
	return &PanicError{
		Op:         op,
		Value:      value,
		StackTrace: captureStack(4),
		Timestamp:  time.Now(),
	}
}

// CaptureStack returns the caller's stack, one "function\n\tfile:line"
// entry per frame.
func CaptureStack() string {
	return captureStack(3)
}

func captureStack(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			return sb.String()
		}
	}
}
