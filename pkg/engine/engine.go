package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/rxdrift/pkg/core"
	"github.com/go-drift/rxdrift/pkg/errors"
	"github.com/go-drift/rxdrift/pkg/metrics"
	"github.com/go-drift/rxdrift/pkg/stream"
)

// DefaultFrameInterval is the minimum spacing between frames pumped by Run.
const DefaultFrameInterval = 16 * time.Millisecond

// Runner owns a widget tree and drives its frames. All tree work (dispatched
// callbacks, builds, post-build callbacks, stream deliveries) happens inside
// StepFrame, which Run calls from a single goroutine.
type Runner struct {
	frameLock  sync.Mutex
	buildOwner *core.BuildOwner
	root       core.Element
	userApp    core.Widget
	remount    bool

	dispatchMu          sync.Mutex
	dispatchQueue       []func()
	pendingFrameRequest atomic.Bool
	wake                chan struct{}

	// capturedError holds the panic that tore down the tree. While set,
	// frames run without mounting the app until RestartApp is called.
	capturedError atomic.Pointer[errors.PanicError]

	frameCounter  atomic.Uint64
	frameInterval time.Duration
	frameTrace    *FrameTraceBuffer
	metrics       *metrics.Registry
	logger        *slog.Logger
	onFrame       func(*FrameSnapshot)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records frame counts and durations in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithFrameTrace records a sample for every frame in buf.
func WithFrameTrace(buf *FrameTraceBuffer) Option {
	return func(r *Runner) {
		r.frameTrace = buf
	}
}

// WithFrameInterval sets the minimum spacing between frames in Run.
func WithFrameInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.frameInterval = d
		}
	}
}

// WithOnFrame is called at the end of every frame with its snapshot.
func WithOnFrame(fn func(*FrameSnapshot)) Option {
	return func(r *Runner) {
		r.onFrame = fn
	}
}

// NewRunner creates a runner with an empty tree.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		buildOwner:    core.NewBuildOwner(),
		wake:          make(chan struct{}, 1),
		frameInterval: DefaultFrameInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.buildOwner.OnNeedsFrame = r.RequestFrame
	return r
}

// SetApp sets the root widget. The current tree, if any, is unmounted and
// the new one mounted on the next frame. Safe to call from any goroutine.
func (r *Runner) SetApp(root core.Widget) {
	r.frameLock.Lock()
	r.userApp = root
	r.remount = true
	r.frameLock.Unlock()
	r.RequestFrame()
}

// RestartApp clears a captured frame panic and remounts the app from
// scratch. All state is lost. Safe to call from any goroutine.
func (r *Runner) RestartApp() {
	r.frameLock.Lock()
	r.capturedError.Store(nil)
	r.remount = true
	r.frameLock.Unlock()
	r.RequestFrame()
}

// Err returns the panic that tore down the tree, or nil.
func (r *Runner) Err() error {
	if err := r.capturedError.Load(); err != nil {
		return err
	}
	return nil
}

// Dispatch schedules a callback to run on the UI thread during the next
// frame and is safe to call from any goroutine.
func (r *Runner) Dispatch(callback func()) {
	if callback == nil {
		return
	}
	r.dispatchMu.Lock()
	r.dispatchQueue = append(r.dispatchQueue, callback)
	r.dispatchMu.Unlock()
	r.RequestFrame()
}

// RequestFrame asks Run to pump a frame soon.
func (r *Runner) RequestFrame() {
	r.pendingFrameRequest.Store(true)
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// NeedsFrame returns true if a new frame should be pumped.
func (r *Runner) NeedsFrame() bool {
	if r.pendingFrameRequest.Load() {
		return true
	}
	r.dispatchMu.Lock()
	hasCallbacks := len(r.dispatchQueue) > 0
	r.dispatchMu.Unlock()
	return hasCallbacks || r.buildOwner.NeedsWork()
}

func (r *Runner) drainDispatchQueue() []func() {
	r.dispatchMu.Lock()
	callbacks := r.dispatchQueue
	r.dispatchQueue = nil
	r.dispatchMu.Unlock()
	return callbacks
}

// StepFrame runs one frame: dispatched callbacks, root mounting, the build
// pass, and post-build callbacks. A panic escaping the frame unmounts the
// tree and is returned as a *errors.PanicError.
func (r *Runner) StepFrame() (snapshot *FrameSnapshot, err error) {
	r.frameLock.Lock()
	defer r.frameLock.Unlock()
	defer r.recoverFromFramePanic(&snapshot, &err)

	start := time.Now()
	r.pendingFrameRequest.Store(false)

	callbacks := r.drainDispatchQueue()
	for _, callback := range callbacks {
		callback()
	}
	dispatched := time.Now()

	if r.remount {
		r.unmountLocked()
		r.remount = false
	}
	if r.root == nil && r.userApp != nil && r.capturedError.Load() == nil {
		r.root = core.MountRoot(r.userApp, r.buildOwner)
	}
	r.buildOwner.FlushBuild()
	built := time.Now()

	r.buildOwner.FlushPostBuild()
	end := time.Now()

	snapshot = &FrameSnapshot{
		FrameID:    r.frameCounter.Add(1),
		Lines:      core.CollectText(r.root),
		Dispatched: len(callbacks),
		Duration:   end.Sub(start),
	}
	r.recordFrame(snapshot, FramePhaseTimings{
		DispatchMs:  durationToMillis(dispatched.Sub(start)),
		BuildMs:     durationToMillis(built.Sub(dispatched)),
		PostBuildMs: durationToMillis(end.Sub(built)),
	})
	if r.onFrame != nil {
		r.onFrame(snapshot)
	}
	return snapshot, nil
}

func (r *Runner) recordFrame(snapshot *FrameSnapshot, phases FramePhaseTimings) {
	r.metrics.FrameRendered(snapshot.Duration, snapshot.Dispatched)
	if r.frameTrace != nil {
		nodes, bindings, subscribed := treeStats(r.root)
		r.frameTrace.Add(FrameSample{
			FrameID:   snapshot.FrameID,
			Timestamp: time.Now().UnixMilli(),
			FrameMs:   durationToMillis(snapshot.Duration),
			Phases:    phases,
			Counts: FrameCounts{
				Dispatched:      snapshot.Dispatched,
				WidgetNodeCount: nodes,
				Bindings:        bindings,
				Subscribed:      subscribed,
				PendingWork:     r.buildOwner.NeedsWork(),
			},
		}, snapshot.Duration)
	}
	r.logger.Debug("frame",
		"id", snapshot.FrameID,
		"dispatched", snapshot.Dispatched,
		"duration", snapshot.Duration)
}

// recoverFromFramePanic catches panics during StepFrame and tears the tree
// down so the next frame starts clean.
func (r *Runner) recoverFromFramePanic(snapshot **FrameSnapshot, err *error) {
	rec := recover()
	if rec == nil {
		return
	}
	perr := &errors.PanicError{
		Op:         "engine.StepFrame",
		Value:      rec,
		StackTrace: errors.CaptureStack(),
		Timestamp:  time.Now(),
	}
	r.capturedError.Store(perr)
	errors.ReportPanic(perr)
	func() {
		defer errors.Recover("engine.unmount")
		r.unmountLocked()
	}()
	*snapshot = &FrameSnapshot{FrameID: r.frameCounter.Add(1)}
	*err = perr
}

func (r *Runner) unmountLocked() {
	if r.root != nil {
		root := r.root
		r.root = nil
		root.Unmount()
	}
}

// Root returns the mounted root element. Only read it between frames.
func (r *Runner) Root() core.Element {
	r.frameLock.Lock()
	defer r.frameLock.Unlock()
	return r.root
}

// Run registers the runner as the stream dispatcher and pumps frames until
// ctx is cancelled, never faster than the frame interval. The tree is
// unmounted before Run returns. A frame panic is logged and the loop keeps
// running with the tree torn down.
func (r *Runner) Run(ctx context.Context) error {
	stream.RegisterDispatch(r.Dispatch)
	defer stream.RegisterDispatch(nil)
	defer func() {
		r.frameLock.Lock()
		r.unmountLocked()
		r.frameLock.Unlock()
	}()

	r.RequestFrame()
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		}

		if wait := r.frameInterval - time.Since(last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
		if !r.NeedsFrame() {
			continue
		}
		last = time.Now()
		if _, err := r.StepFrame(); err != nil {
			r.logger.Error("frame failed, tree unmounted", "err", err)
		}
	}
}
