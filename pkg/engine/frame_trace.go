package engine

import (
	"sync"
	"time"

	"github.com/go-drift/rxdrift/pkg/core"
)

const (
	defaultTraceCapacity = 240
	defaultSlowFrame     = 16667 * time.Microsecond
)

// FramePhaseTimings is the time spent in each frame phase, in milliseconds.
type FramePhaseTimings struct {
	DispatchMs  float64 `json:"dispatchMs"`
	BuildMs     float64 `json:"buildMs"`
	PostBuildMs float64 `json:"postBuildMs"`
}

// FrameCounts describes the work a frame did and the tree it left behind.
type FrameCounts struct {
	Dispatched      int  `json:"dispatched"`
	WidgetNodeCount int  `json:"widgetNodeCount"`
	Bindings        int  `json:"bindings"`
	Subscribed      int  `json:"subscribed"`
	PendingWork     bool `json:"pendingWork,omitempty"`
}

// FrameSample is one traced frame.
type FrameSample struct {
	FrameID   uint64            `json:"frameId"`
	Timestamp int64             `json:"ts"`
	FrameMs   float64           `json:"frameMs"`
	Phases    FramePhaseTimings `json:"phases"`
	Counts    FrameCounts       `json:"counts"`
}

// FrameTimeline is the /frames response.
type FrameTimeline struct {
	Samples     []FrameSample `json:"samples"`
	SlowFrames  int           `json:"slowFrames"`
	ThresholdMs float64       `json:"thresholdMs"`
}

// FrameTraceBuffer keeps the most recent frame samples. Frames slower than
// the threshold are counted over the buffer's whole life.
type FrameTraceBuffer struct {
	mu        sync.Mutex
	samples   []FrameSample
	next      int
	full      bool
	slow      int
	threshold time.Duration
}

// NewFrameTraceBuffer creates a buffer holding capacity samples. Zero
// values select 240 samples and a 60Hz frame budget.
func NewFrameTraceBuffer(capacity int, threshold time.Duration) *FrameTraceBuffer {
	if capacity <= 0 {
		capacity = defaultTraceCapacity
	}
	if threshold <= 0 {
		threshold = defaultSlowFrame
	}
	return &FrameTraceBuffer{
		samples:   make([]FrameSample, capacity),
		threshold: threshold,
	}
}

// Add records a sample, overwriting the oldest once the buffer is full.
func (b *FrameTraceBuffer) Add(sample FrameSample, frameDuration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[b.next] = sample
	b.next++
	if b.next == len(b.samples) {
		b.next = 0
		b.full = true
	}
	if frameDuration > b.threshold {
		b.slow++
	}
}

// Snapshot returns the buffered samples oldest first.
func (b *FrameTraceBuffer) Snapshot() FrameTimeline {
	b.mu.Lock()
	defer b.mu.Unlock()

	var samples []FrameSample
	if b.full {
		samples = append(samples, b.samples[b.next:]...)
	}
	samples = append(samples, b.samples[:b.next]...)
	return FrameTimeline{
		Samples:     samples,
		SlowFrames:  b.slow,
		ThresholdMs: durationToMillis(b.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// treeStats counts the elements under root and the bindings they hold.
func treeStats(root core.Element) (nodes, bindings, subscribed int) {
	if root == nil {
		return 0, 0, 0
	}
	var visit func(core.Element)
	visit = func(e core.Element) {
		nodes++
		for _, d := range core.BindingsOf(e) {
			bindings++
			if d.Subscribed {
				subscribed++
			}
		}
		e.VisitChildren(func(child core.Element) bool {
			visit(child)
			return true
		})
	}
	visit(root)
	return nodes, bindings, subscribed
}
