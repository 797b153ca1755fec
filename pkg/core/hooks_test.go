package core

import (
	"strings"
	"testing"
)

// MockDisposable for testing UseController
type mockDisposable struct {
	disposed bool
}

func (m *mockDisposable) Dispose() {
	m.disposed = true
}

func TestUseController(t *testing.T) {
	base := &StateBase{}

	controller := UseController(base, func() *mockDisposable {
		return &mockDisposable{}
	})

	if controller.disposed {
		t.Error("Controller should not be disposed initially")
	}

	base.Dispose()

	if !controller.disposed {
		t.Error("Controller should be disposed when StateBase is disposed")
	}
}

func TestUseController_MemoizedAcrossBuilds(t *testing.T) {
	base := &StateBase{}
	created := 0
	build := func() *mockDisposable {
		base.beginBuild()
		defer base.endBuild()
		return UseController(base, func() *mockDisposable {
			created++
			return &mockDisposable{}
		})
	}

	first := build()
	second := build()

	if first != second || created != 1 {
		t.Errorf("expected one controller across builds, created %d", created)
	}
	base.Dispose()
	if !first.disposed {
		t.Error("controller should be disposed with the state")
	}
}

func TestUseHook_ConditionalHookPanics(t *testing.T) {
	base := &StateBase{}
	base.beginBuild()
	useHook(base, func() int { return 1 })
	base.endBuild()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for a hook added after the first build")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "unconditionally") {
			t.Errorf("unexpected panic %v", r)
		}
	}()
	base.beginBuild()
	useHook(base, func() int { return 1 })
	useHook(base, func() string { return "extra" })
}

func TestUseHook_TypeChangePanics(t *testing.T) {
	base := &StateBase{}
	base.beginBuild()
	useHook(base, func() int { return 1 })
	base.endBuild()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when a hook slot changes type")
		}
	}()
	base.beginBuild()
	useHook(base, func() string { return "x" })
}

func TestOnDispose_LIFOAndUnregister(t *testing.T) {
	base := &StateBase{}
	var order []int
	base.OnDispose(func() { order = append(order, 1) })
	unregister := base.OnDispose(func() { order = append(order, 2) })
	base.OnDispose(func() { order = append(order, 3) })
	unregister()

	base.Dispose()
	base.Dispose()

	if len(order) != 2 || order[0] != 3 || order[1] != 1 {
		t.Errorf("expected [3 1], got %v", order)
	}

	ran := false
	base.OnDispose(func() { ran = true })
	if !ran {
		t.Error("cleanup registered after dispose should run immediately")
	}
}

func TestSchedulePostBuild_WithoutOwnerRunsImmediately(t *testing.T) {
	base := &StateBase{}
	ran := false
	base.schedulePostBuild(func() { ran = true })
	if !ran {
		t.Error("expected immediate run without a build owner")
	}
}
