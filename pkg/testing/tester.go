package testing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-drift/rxdrift/pkg/core"
	"github.com/go-drift/rxdrift/pkg/stream"
)

// DefaultFrameDuration is how far PumpAndSettle advances the clock per frame.
const DefaultFrameDuration = 16 * time.Millisecond

// ErrSettleTimeout is returned when PumpAndSettle exceeds its timeout.
var ErrSettleTimeout = errors.New("PumpAndSettle timed out: framework did not settle")

// WidgetTester provides isolated widget testing. It drives the same
// dispatch, build, and post-build phases as the engine but runs every
// stream timer on a FakeClock.
type WidgetTester struct {
	buildOwner    *core.BuildOwner
	root          core.Element
	clock         *FakeClock
	prevScheduler stream.Scheduler

	mu         sync.Mutex
	dispatches []func()
}

// NewWidgetTester creates a tester with a fresh fake clock installed as the
// stream scheduler. Call Cleanup() when done, or use NewWidgetTesterWithT().
func NewWidgetTester() *WidgetTester {
	clk := NewFakeClock()
	t := &WidgetTester{
		buildOwner: core.NewBuildOwner(),
		clock:      clk,
	}
	t.prevScheduler = stream.SetScheduler(clk)
	stream.RegisterDispatch(t.Dispatch)
	return t
}

// NewWidgetTesterWithT creates a tester that auto-cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewWidgetTesterWithT(t *testing.T) *WidgetTester {
	tester := NewWidgetTester()
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup unmounts the tree and restores the stream scheduler. Must be
// called if not using NewWidgetTesterWithT.
func (t *WidgetTester) Cleanup() {
	t.Unmount()
	stream.RegisterDispatch(nil)
	stream.SetScheduler(t.prevScheduler)
}

// Clock returns the fake clock for advancing time in tests.
func (t *WidgetTester) Clock() *FakeClock {
	return t.clock
}

// BuildOwner returns the owner driving the tester's tree.
func (t *WidgetTester) BuildOwner() *core.BuildOwner {
	return t.buildOwner
}

// PumpWidget mounts (or remounts) a widget and runs one full frame.
// Subscriptions made by hooks are connected during that frame's
// post-build phase, so values they emit synchronously appear after the
// next Pump.
func (t *WidgetTester) PumpWidget(widget core.Widget) error {
	t.Unmount()
	t.root = core.MountRoot(widget, t.buildOwner)
	return t.Pump()
}

// Pump runs a single frame cycle: dispatches, build, post-build.
func (t *WidgetTester) Pump() error {
	t.mu.Lock()
	dispatches := t.dispatches
	t.dispatches = nil
	t.mu.Unlock()
	for _, fn := range dispatches {
		fn()
	}

	t.buildOwner.FlushBuild()
	t.buildOwner.FlushPostBuild()
	return nil
}

// Advance moves the fake clock forward, firing due timers, then pumps a frame.
func (t *WidgetTester) Advance(d time.Duration) error {
	t.clock.Advance(d)
	return t.Pump()
}

// PumpAndSettle runs frames until the framework is idle or the timeout
// is reached. Each frame advances the fake clock by DefaultFrameDuration.
// Pending stream timers count as work, so a pipeline built on Interval
// never settles. Returns ErrSettleTimeout if the framework does not settle
// within timeout.
func (t *WidgetTester) PumpAndSettle(timeout time.Duration) error {
	var elapsed time.Duration
	for elapsed < timeout {
		if err := t.Pump(); err != nil {
			return err
		}
		if !t.needsWork() {
			return nil
		}
		t.clock.Advance(DefaultFrameDuration)
		elapsed += DefaultFrameDuration
	}
	return ErrSettleTimeout
}

// needsWork returns true if the framework has pending work.
func (t *WidgetTester) needsWork() bool {
	t.mu.Lock()
	pending := len(t.dispatches)
	t.mu.Unlock()
	return pending > 0 || t.buildOwner.NeedsWork() || t.clock.PendingTimers() > 0
}

// Dispatch queues a callback for the next frame, mirroring the engine's
// UI-thread queue.
func (t *WidgetTester) Dispatch(fn func()) {
	t.mu.Lock()
	t.dispatches = append(t.dispatches, fn)
	t.mu.Unlock()
}

// Unmount tears down the mounted tree, disposing every state and binding.
func (t *WidgetTester) Unmount() {
	if t.root != nil {
		t.root.Unmount()
		t.root = nil
	}
}

// RootElement returns the root element of the mounted tree.
func (t *WidgetTester) RootElement() core.Element {
	return t.root
}

// Texts returns the content of every core.Text in the tree, in order.
func (t *WidgetTester) Texts() []string {
	return core.CollectText(t.root)
}

// Find evaluates a finder against the current element tree.
func (t *WidgetTester) Find(finder Finder) FinderResult {
	if t.root == nil {
		return FinderResult{finder: finder}
	}
	return FinderResult{
		elements: finder.Evaluate(t.root),
		finder:   finder,
	}
}
