package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Registry = prometheus.NewRegistry()
	return New(cfg)
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := newTestRegistry(t)

	r.BindingConstructed("counter", "event")
	r.Emission("counter")
	r.Emission("counter")
	r.InputPushed("counter")
	r.EventEmitted("counter", false)
	r.EventEmitted("counter", true)

	if got := testutil.ToFloat64(r.BindingsActive.WithLabelValues("counter")); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.Emissions.WithLabelValues("counter")); got != 2 {
		t.Errorf("emissions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.EventsDropped.WithLabelValues("counter")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}

	r.BindingDisposed("counter")
	if got := testutil.ToFloat64(r.BindingsActive.WithLabelValues("counter")); got != 0 {
		t.Errorf("active after dispose = %v, want 0", got)
	}
}

func TestRegistry_NilIsNoOp(t *testing.T) {
	var r *Registry
	r.BindingConstructed("x", "projection")
	r.Emission("x")
	r.InputPushed("x")
	r.EventEmitted("x", false)
	r.PipelineError("x")
	r.BindingDisposed("x")
	r.FrameRendered(time.Millisecond, 2)
}

func TestRegistry_FrameRendered(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(Config{Enabled: true, Registry: reg})

	r.FrameRendered(2*time.Millisecond, 3)
	r.FrameRendered(time.Millisecond, 0)

	if got := testutil.ToFloat64(r.Frames); got != 2 {
		t.Errorf("frames = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.Dispatched); got != 3 {
		t.Errorf("dispatched = %v, want 3", got)
	}
	n, err := testutil.GatherAndCount(reg, "rxdrift_engine_frame_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 histogram series, got %d", n)
	}
}

func TestNew_Disabled(t *testing.T) {
	if r := New(Config{Enabled: false}); r != nil {
		t.Error("expected nil registry when disabled")
	}
}

func TestNew_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(Config{Enabled: true, Registry: reg, Namespace: "app"})
	r.PipelineError("search")

	n, err := testutil.GatherAndCount(reg, "app_binding_pipeline_errors_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}
