package binding_test

import (
	stderrors "errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/go-drift/rxdrift/pkg/binding"
	"github.com/go-drift/rxdrift/pkg/errors"
	"github.com/go-drift/rxdrift/pkg/metrics"
	"github.com/go-drift/rxdrift/pkg/stream"
	drifttest "github.com/go-drift/rxdrift/pkg/testing"
)

var quiet = binding.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func useFakeClock(t *testing.T) *drifttest.FakeClock {
	t.Helper()
	clk := drifttest.NewFakeClock()
	prev := stream.SetScheduler(clk)
	t.Cleanup(func() { stream.SetScheduler(prev) })
	return clk
}

// captureErrors swaps the global error handler for the duration of a test.
func captureErrors(t *testing.T) *[]*errors.PipelineError {
	t.Helper()
	var got []*errors.PipelineError
	errors.SetHandler(&pipelineRecorder{got: &got})
	t.Cleanup(func() { errors.SetHandler(nil) })
	return &got
}

type pipelineRecorder struct {
	got *[]*errors.PipelineError
}

func (r *pipelineRecorder) HandleError(*errors.DriftError)      {}
func (r *pipelineRecorder) HandlePanic(*errors.PanicError)      {}
func (r *pipelineRecorder) HandleBuildError(*errors.BuildError) {}
func (r *pipelineRecorder) HandlePipelineError(err *errors.PipelineError) {
	*r.got = append(*r.got, err)
}

func mustNew[E, S any](t *testing.T, f binding.Factory[E, S], opts ...binding.Option) *binding.Controller[E, S] {
	t.Helper()
	c, err := binding.New(f, append([]binding.Option{quiet}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Dispose)
	return c
}

func TestController_InputChangePushesOnce(t *testing.T) {
	constructed := 0
	var seen []binding.Inputs
	c := mustNew(t, binding.ProjectWithInputs(func(state stream.Observable[int], inputs stream.Observable[binding.Inputs]) stream.Observable[int] {
		constructed++
		return stream.Map(inputs, func(in binding.Inputs) int {
			seen = append(seen, in)
			return in[0].(int) * 10
		})
	}), binding.WithInputs(1, "a"))
	c.Subscribe(nil)

	if c.Update(binding.Inputs{1, "a"}) {
		t.Error("unchanged inputs should not be pushed")
	}
	if !c.Update(binding.Inputs{2, "a"}) {
		t.Error("changed inputs should be pushed")
	}

	if constructed != 1 {
		t.Errorf("factory ran %d times, want 1", constructed)
	}
	if len(seen) != 2 {
		t.Fatalf("pipeline saw %d tuples, want 2 (seed + change)", len(seen))
	}
	if !slices.Equal(seen[1], binding.Inputs{2, "a"}) {
		t.Errorf("pushed %v, want [2 a]", seen[1])
	}
	if v, _ := c.Snapshot().Get(); v != 20 {
		t.Errorf("snapshot = %d, want 20", v)
	}
}

func TestController_NoInputsConstructsOnce(t *testing.T) {
	constructed := 0
	c := mustNew(t, binding.Project(func(state stream.Observable[int]) stream.Observable[int] {
		constructed++
		return stream.Of(1)
	}))

	for i := range 5 {
		if c.Update(binding.Inputs{i}) {
			t.Errorf("render %d: update accepted without declared inputs", i)
		}
	}
	c.Subscribe(nil)

	if constructed != 1 {
		t.Errorf("factory ran %d times, want 1", constructed)
	}
}

func TestController_EmptyInputsDisableReactivity(t *testing.T) {
	pushes := 0
	c := mustNew(t, binding.ProjectWithInputs(func(state stream.Observable[int], inputs stream.Observable[binding.Inputs]) stream.Observable[int] {
		return stream.MapTo(stream.Tap(inputs, func(binding.Inputs) { pushes++ }), 1)
	}), binding.WithInputs())
	c.Subscribe(nil)

	if c.Update(binding.Inputs{1}) {
		t.Error("empty tuple should disable input forwarding")
	}
	if pushes != 1 {
		t.Errorf("inputs delivered %d times, want 1", pushes)
	}
}

func TestController_UndeclaredInputsReplayNil(t *testing.T) {
	var seen []binding.Inputs
	c := mustNew(t, binding.ProjectWithInputs(func(state stream.Observable[int], inputs stream.Observable[binding.Inputs]) stream.Observable[int] {
		return stream.MapTo(stream.Tap(inputs, func(in binding.Inputs) { seen = append(seen, in) }), 0)
	}))
	c.Subscribe(nil)

	if len(seen) != 1 || seen[0] != nil {
		t.Errorf("got %v, want one nil tuple", seen)
	}
}

func TestController_ArityChangeIsAChange(t *testing.T) {
	var last binding.Inputs
	c := mustNew(t, binding.ProjectWithInputs(func(state stream.Observable[int], inputs stream.Observable[binding.Inputs]) stream.Observable[int] {
		return stream.Map(inputs, func(in binding.Inputs) int { last = in; return len(in) })
	}), binding.WithInputs(1))
	c.Subscribe(nil)

	if !c.Update(binding.Inputs{1, 2}) {
		t.Fatal("arity change should be pushed")
	}
	if len(last) != 2 {
		t.Errorf("pipeline saw %v", last)
	}
}

func TestController_SnapshotIsReferenceStable(t *testing.T) {
	src := stream.NewSubject[int]()
	c := mustNew(t, binding.Project(func(stream.Observable[int]) stream.Observable[int] { return src }),
		binding.WithInitial(1))
	c.Subscribe(nil)

	first := c.Snapshot()
	if c.Snapshot() != first {
		t.Error("snapshot changed without an emission")
	}

	src.Next(2)
	second := c.Snapshot()
	if second == first {
		t.Error("snapshot should change after an emission")
	}
	if c.Snapshot() != second {
		t.Error("snapshot changed without an emission")
	}
	if second.Version != 1 {
		t.Errorf("version = %d, want 1", second.Version)
	}
}

func TestController_StateWrittenBeforeOnChange(t *testing.T) {
	src := stream.NewSubject[string]()
	var c *binding.Controller[binding.NoEvent, string]
	var observed []string
	c = mustNew(t, binding.Project(func(stream.Observable[string]) stream.Observable[string] { return src }))
	c.Subscribe(func() {
		v, _ := c.Snapshot().Get()
		observed = append(observed, v)
	})

	src.Next("a")
	src.Next("b")

	if !slices.Equal(observed, []string{"a", "b"}) {
		t.Errorf("onChange observed %v, want [a b]", observed)
	}
}

func TestController_StateChannelFollowsEmissions(t *testing.T) {
	src := stream.NewSubject[int]()
	var fromState []int
	c := mustNew(t, binding.Project(func(state stream.Observable[int]) stream.Observable[int] {
		state.Subscribe(stream.Observer[int]{Next: func(v int) { fromState = append(fromState, v) }})
		return src
	}), binding.WithInitial(5))
	c.Subscribe(nil)

	src.Next(6)

	if !slices.Equal(fromState, []int{5, 6}) {
		t.Errorf("state channel delivered %v, want [5 6]", fromState)
	}
}

func TestController_OfWithoutInitial(t *testing.T) {
	c := mustNew(t, binding.Project(func(stream.Observable[int]) stream.Observable[int] {
		return stream.Of(100)
	}))

	if _, ok := c.Snapshot().Get(); ok {
		t.Error("snapshot should be unset before subscription")
	}

	c.Subscribe(nil)

	v, ok := c.Snapshot().Get()
	if !ok || v != 100 {
		t.Errorf("snapshot = %d (valid=%v), want 100", v, ok)
	}
}

func TestController_EventAddsPayloadToState(t *testing.T) {
	c := mustNew(t, binding.OnEvent(func(events stream.Observable[int], state stream.Observable[int]) stream.Observable[int] {
		return stream.Map(stream.WithLatestFrom(events, state), func(p stream.Pair[int, int]) int {
			return p.Second + p.First
		})
	}), binding.WithInitial(10))
	c.Subscribe(nil)

	c.Emitter().Emit(5)
	if v, _ := c.Snapshot().Get(); v != 15 {
		t.Errorf("after emit(5) snapshot = %d, want 15", v)
	}
	c.Emitter().Emit(2)
	if v, _ := c.Snapshot().Get(); v != 17 {
		t.Errorf("after emit(2) snapshot = %d, want 17", v)
	}
}

func TestController_DelayedIncrement(t *testing.T) {
	clk := useFakeClock(t)
	c := mustNew(t, binding.OnEvent(func(events stream.Observable[binding.NoEvent], state stream.Observable[int]) stream.Observable[int] {
		inc := stream.Map(stream.WithLatestFrom(events, state), func(p stream.Pair[binding.NoEvent, int]) int {
			return p.Second + 1
		})
		return stream.Delay(inc, 200*time.Millisecond)
	}), binding.WithInitial(1000))
	c.Subscribe(nil)

	want := func(step string, n int) {
		t.Helper()
		if v, _ := c.Snapshot().Get(); v != n {
			t.Errorf("%s: snapshot = %d, want %d", step, v, n)
		}
	}

	want("initial", 1000)
	c.Emitter().Emit(binding.NoEvent{})
	clk.Advance(199 * time.Millisecond)
	want("before delay", 1000)
	clk.Advance(time.Millisecond)
	want("first emit", 1001)

	c.Emitter().Emit(binding.NoEvent{})
	clk.Advance(200 * time.Millisecond)
	want("second emit", 1002)
}

func TestController_DisposeCancelsPendingTimer(t *testing.T) {
	clk := useFakeClock(t)
	teardowns := 0
	fired := false
	c := mustNew(t, binding.Project(func(stream.Observable[int]) stream.Observable[int] {
		return stream.New(func(sink stream.Sink[int]) func() {
			cancel := stream.CurrentScheduler().AfterFunc(time.Second, func() {
				fired = true
				sink.Next(1)
			})
			return func() {
				teardowns++
				cancel()
			}
		})
	}))
	c.Subscribe(nil)

	c.Dispose()
	if teardowns != 1 {
		t.Fatalf("teardown ran %d times during dispose, want 1", teardowns)
	}
	c.Dispose()
	clk.Advance(2 * time.Second)

	if teardowns != 1 {
		t.Errorf("teardown ran %d times, want 1", teardowns)
	}
	if fired {
		t.Error("timer fired after dispose")
	}
}

func TestController_DisposeOrder(t *testing.T) {
	var order []string
	record := func(name string) func() {
		return func() { order = append(order, name) }
	}
	c, err := binding.New(binding.OnEventWithInputs(func(events stream.Observable[int], state stream.Observable[int], inputs stream.Observable[binding.Inputs]) stream.Observable[int] {
		state.Subscribe(stream.Observer[int]{Complete: record("state")})
		inputs.Subscribe(stream.Observer[binding.Inputs]{Complete: record("inputs")})
		events.Subscribe(stream.Observer[int]{Complete: record("events")})
		return stream.New(func(sink stream.Sink[int]) func() {
			return record("unsubscribe")
		})
	}), quiet, binding.WithInputs(1))
	if err != nil {
		t.Fatal(err)
	}
	c.Subscribe(nil)

	c.Dispose()
	c.Dispose()

	want := []string{"unsubscribe", "state", "inputs", "events"}
	if !slices.Equal(order, want) {
		t.Errorf("teardown order %v, want %v", order, want)
	}
	if !c.Disposed() || c.Subscribed() {
		t.Error("controller should be disposed and unsubscribed")
	}
}

func TestController_ReentrantEmitDuringTeardown(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := metrics.DefaultConfig()
	cfg.Registry = reg
	m := metrics.New(cfg)

	var c *binding.Controller[int, int]
	reentered := false
	c = mustNew(t, binding.OnEvent(func(events stream.Observable[int], state stream.Observable[int]) stream.Observable[int] {
		events.Subscribe(stream.Observer[int]{Complete: func() {
			reentered = true
			c.Emitter().Emit(99)
		}})
		return events
	}), binding.WithName("reentrant"), binding.WithMetrics(m), binding.WithInitial(1))
	c.Subscribe(nil)

	c.Dispose()

	if !reentered {
		t.Fatal("completion handler did not run")
	}
	if v, _ := c.Snapshot().Get(); v != 1 {
		t.Errorf("snapshot = %d, want 1", v)
	}
	if got := testutil.ToFloat64(m.EventsDropped.WithLabelValues("reentrant")); got != 1 {
		t.Errorf("dropped events = %v, want 1", got)
	}
}

func TestController_PipelineErrorFreezesSnapshot(t *testing.T) {
	reported := captureErrors(t)
	src := stream.NewSubject[int]()
	var routed error
	c := mustNew(t, binding.Project(func(stream.Observable[int]) stream.Observable[int] { return src }),
		binding.WithName("flaky"),
		binding.WithOnError(func(err error) { routed = err }))
	c.Subscribe(nil)

	boom := stderrors.New("boom")
	src.Next(1)
	src.Error(boom)
	src.Next(2)

	if v, _ := c.Snapshot().Get(); v != 1 {
		t.Errorf("snapshot = %d, want frozen at 1", v)
	}
	if !stderrors.Is(c.Err(), boom) {
		t.Errorf("Err() = %v, want boom", c.Err())
	}
	var perr *errors.PipelineError
	if !stderrors.As(routed, &perr) || perr.Binding != "flaky" || !stderrors.Is(perr, boom) {
		t.Errorf("routed error = %v", routed)
	}
	if len(*reported) != 1 {
		t.Errorf("reported %d pipeline errors, want 1", len(*reported))
	}

	c.Subscribe(nil)
	if c.Subscribed() {
		t.Error("a failed binding should not resubscribe")
	}
}

func TestController_ResubscribeReleasesPrevious(t *testing.T) {
	subscriptions, teardowns := 0, 0
	c := mustNew(t, binding.Project(func(stream.Observable[int]) stream.Observable[int] {
		return stream.New(func(sink stream.Sink[int]) func() {
			subscriptions++
			return func() { teardowns++ }
		})
	}))

	first := c.Subscribe(nil)
	c.Subscribe(nil)
	first()

	if subscriptions != 2 || teardowns != 1 {
		t.Errorf("subscriptions=%d teardowns=%d, want 2 and 1", subscriptions, teardowns)
	}
	if !c.Subscribed() {
		t.Error("second subscription should still be live")
	}
}

func TestNew_FactoryPanic(t *testing.T) {
	var leaked stream.Observable[int]
	_, err := binding.New(binding.Project(func(state stream.Observable[int]) stream.Observable[int] {
		leaked = state
		panic("factory exploded")
	}), quiet, binding.WithName("broken"))

	var cerr *binding.ConstructError
	if !stderrors.As(err, &cerr) {
		t.Fatalf("expected ConstructError, got %v", err)
	}
	if cerr.Binding != "broken" || cerr.Recovered != "factory exploded" {
		t.Errorf("unexpected error fields: %+v", cerr)
	}

	completed := false
	leaked.Subscribe(stream.Observer[int]{Complete: func() { completed = true }})
	if !completed {
		t.Error("channels should be completed after a construct error")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := binding.New(binding.Factory[int, int]{}); !stderrors.Is(err, binding.ErrInvalidFactory) {
		t.Errorf("zero factory: got %v", err)
	}

	identity := binding.Project(func(s stream.Observable[int]) stream.Observable[int] { return s })
	if _, err := binding.New(identity, quiet, binding.WithInitial("nope")); !stderrors.Is(err, binding.ErrInitialType) {
		t.Errorf("wrong initial type: got %v", err)
	}

	nilPipe := binding.Project(func(stream.Observable[int]) stream.Observable[int] { return nil })
	if _, err := binding.New(nilPipe, quiet); !stderrors.Is(err, binding.ErrNilPipeline) {
		t.Errorf("nil pipeline: got %v", err)
	}
}

func TestNew_NilInitialIsZeroValue(t *testing.T) {
	c := mustNew(t, binding.Project(func(stream.Observable[*int]) stream.Observable[*int] {
		return stream.Never[*int]()
	}), binding.WithInitial(nil))

	v, ok := c.Snapshot().Get()
	if !ok || v != nil {
		t.Errorf("got %v valid=%v, want nil valid=true", v, ok)
	}
}

func TestEmitter_IdentityAndDrop(t *testing.T) {
	c := mustNew(t, binding.OnEvent(func(events stream.Observable[string], state stream.Observable[string]) stream.Observable[string] {
		return events
	}))
	c.Subscribe(nil)

	e := c.Emitter()
	if c.Emitter() != e {
		t.Error("emitter identity changed")
	}
	e.Func()("hello")
	if v, _ := c.Snapshot().Get(); v != "hello" {
		t.Errorf("snapshot = %q, want hello", v)
	}

	c.Dispose()
	e.Emit("late")
	if v, _ := c.Snapshot().Get(); v != "hello" {
		t.Errorf("late emit changed snapshot to %q", v)
	}
}

func TestProjection_HasNoEmitter(t *testing.T) {
	c := mustNew(t, binding.Project(func(s stream.Observable[int]) stream.Observable[int] { return s }))
	if c.Emitter() != nil {
		t.Error("projection bindings should not have an emitter")
	}
	if c.Kind() != binding.KindProjection || c.Name() != "projection" {
		t.Errorf("kind=%v name=%q", c.Kind(), c.Name())
	}
}

func TestController_Metrics(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Registry = prometheus.NewRegistry()
	m := metrics.New(cfg)

	c, err := binding.New(binding.Project(func(stream.Observable[int]) stream.Observable[int] {
		return stream.Of(1, 2)
	}), quiet, binding.WithName("pair"), binding.WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	c.Subscribe(nil)

	if got := testutil.ToFloat64(m.Emissions.WithLabelValues("pair")); got != 2 {
		t.Errorf("emissions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.BindingsActive.WithLabelValues("pair")); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}
	c.Dispose()
	if got := testutil.ToFloat64(m.BindingsActive.WithLabelValues("pair")); got != 0 {
		t.Errorf("active after dispose = %v, want 0", got)
	}
}
