package core

import (
	"slices"
	"sync"

	"github.com/go-drift/rxdrift/pkg/errors"
)

// BuildOwner tracks dirty elements that need rebuilding and the callbacks
// that run once a build pass has been committed.
type BuildOwner struct {
	dirty     []Element
	dirtySet  map[Element]bool
	postBuild []func()
	mu        sync.Mutex

	// OnNeedsFrame is called when a new element is scheduled for rebuild
	// or a post-build callback is queued, signalling the run loop that a
	// frame should be pumped.
	OnNeedsFrame func()
}

// NewBuildOwner creates a new BuildOwner.
func NewBuildOwner() *BuildOwner {
	return &BuildOwner{}
}

// ScheduleBuild marks an element as needing rebuild.
func (b *BuildOwner) ScheduleBuild(element Element) {
	added := func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.dirtySet[element] {
			return false
		}
		if b.dirtySet == nil {
			b.dirtySet = make(map[Element]bool)
		}
		b.dirtySet[element] = true
		b.dirty = append(b.dirty, element)
		return true
	}()

	if added && b.OnNeedsFrame != nil {
		b.OnNeedsFrame()
	}
}

// AddPostBuildCallback queues fn to run after the current build pass.
// Hooks use it to connect subscriptions once the build has committed.
func (b *BuildOwner) AddPostBuildCallback(fn func()) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.postBuild = append(b.postBuild, fn)
	b.mu.Unlock()

	if b.OnNeedsFrame != nil {
		b.OnNeedsFrame()
	}
}

// NeedsWork returns true if there are dirty elements or pending post-build callbacks.
func (b *BuildOwner) NeedsWork() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dirty) > 0 || len(b.postBuild) > 0
}

// FlushBuild rebuilds all dirty elements in depth order.
func (b *BuildOwner) FlushBuild() {
	for {
		b.mu.Lock()
		if len(b.dirty) == 0 {
			b.mu.Unlock()
			return
		}

		slices.SortFunc(b.dirty, func(a, b Element) int {
			return a.Depth() - b.Depth()
		})

		dirty := b.dirty
		b.dirty = nil
		clear(b.dirtySet)
		b.mu.Unlock()

		for _, element := range dirty {
			if mountable, ok := element.(interface{ isMounted() bool }); ok && !mountable.isMounted() {
				continue
			}
			element.RebuildIfNeeded()
		}
	}
}

// FlushPostBuild runs queued post-build callbacks in the order they were
// added, including any queued while flushing. A panicking callback is
// reported and does not stop the rest.
func (b *BuildOwner) FlushPostBuild() {
	for {
		b.mu.Lock()
		if len(b.postBuild) == 0 {
			b.mu.Unlock()
			return
		}
		callbacks := b.postBuild
		b.postBuild = nil
		b.mu.Unlock()

		for _, fn := range callbacks {
			func() {
				defer errors.Recover("core.postBuild")
				fn()
			}()
		}
	}
}

// Flush runs one frame: a build pass followed by its post-build callbacks.
func (b *BuildOwner) Flush() {
	b.FlushBuild()
	b.FlushPostBuild()
}
