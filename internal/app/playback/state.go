// Package playback keeps a unit/word highlight in step with an audio stream.
package playback

import "github.com/osa030/versesync/internal/domain/recitation"

// Mode represents the playback scope.
type Mode int

const (
	ModeIdle       Mode = iota // Nothing is being tracked
	ModeUnit                   // Playing a single unit, stopping at its end
	ModeContinuous             // Playing across units until the stream ends
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeUnit:
		return "unit"
	case ModeContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// State is a snapshot of the playback state.
type State struct {
	Collection  int
	Mode        Mode
	Target      *recitation.Target // Active unit, nil when none
	ActiveWord  int                // Active word index, 0 when none
	IsPlaying   bool
	PositionSec float64
	DurationSec float64 // 0 when unknown
}

// clone returns a copy that shares no memory with s.
func (s State) clone() State {
	if s.Target != nil {
		t := *s.Target
		s.Target = &t
	}
	return s
}

// sameTarget reports whether a and b point at the same unit.
func sameTarget(a, b *recitation.Target) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
