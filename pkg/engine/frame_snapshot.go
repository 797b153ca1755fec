package engine

import "time"

// FrameSnapshot describes what a single frame produced. Headless front ends
// present Lines, the content of every core.Text in tree order.
type FrameSnapshot struct {
	FrameID    uint64        `json:"frameId"`
	Lines      []string      `json:"lines"`
	Dispatched int           `json:"dispatched"`
	Duration   time.Duration `json:"duration"`
}

// Equal reports whether two snapshots present the same lines.
func (s *FrameSnapshot) Equal(other *FrameSnapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Lines) != len(other.Lines) {
		return false
	}
	for i := range s.Lines {
		if s.Lines[i] != other.Lines[i] {
			return false
		}
	}
	return true
}
