package playback

import (
	"math"

	"github.com/osa030/versesync/internal/domain/recitation"
)

// Lookup provides unit timing for a collection.
type Lookup interface {
	Unit(collection, unit int) (recitation.Unit, bool)
	UnitsOf(collection int) []int
}

// Highlight is the unit and word containing a position.
type Highlight struct {
	Target *recitation.Target // nil when no unit contains the position
	Word   int                // 0 when no word contains the position
}

// ResolveHighlight finds what should be highlighted at tMs.
//
// In unit mode only the target unit is searched. In continuous mode the
// first unit of the collection whose range contains tMs wins. Idle mode
// and lookup misses yield an empty highlight.
func ResolveHighlight(lookup Lookup, mode Mode, collection int, target *recitation.Target, tMs int) Highlight {
	switch mode {
	case ModeUnit:
		if target == nil {
			return Highlight{}
		}
		u, ok := lookup.Unit(target.Collection, target.Unit)
		if !ok {
			return Highlight{}
		}
		h := Highlight{Target: &recitation.Target{Collection: u.Collection, Unit: u.ID}}
		if seg, ok := u.SegmentAt(tMs); ok {
			h.Word = seg.Word
		}
		return h

	case ModeContinuous:
		for _, id := range lookup.UnitsOf(collection) {
			u, ok := lookup.Unit(collection, id)
			if !ok || !u.Contains(tMs) {
				continue
			}
			h := Highlight{Target: &recitation.Target{Collection: collection, Unit: id}}
			if seg, ok := u.SegmentAt(tMs); ok {
				h.Word = seg.Word
			}
			return h
		}
	}
	return Highlight{}
}

// Proposal is the tracker's suggested update for one time update.
type Proposal struct {
	Target      *recitation.Target
	Word        int
	Changed     bool    // Target or Word differ from the current state
	Finish      bool    // Unit end reached: pause, seek to BoundarySec, go idle
	BoundarySec float64 // Unit end in seconds (Finish only)
}

// Tracker maps stream positions to highlight updates. It keeps no state of its own.
type Tracker struct {
	lookup Lookup
}

// NewTracker creates a new tracker.
func NewTracker(lookup Lookup) *Tracker {
	return &Tracker{lookup: lookup}
}

// Next proposes the update for position tMs given the current state.
// Gaps hold the previous highlight.
func (t *Tracker) Next(state State, tMs int) Proposal {
	hold := Proposal{Target: state.Target, Word: state.ActiveWord}

	switch state.Mode {
	case ModeUnit:
		if state.Target == nil {
			return hold
		}
		u, ok := t.lookup.Unit(state.Target.Collection, state.Target.Unit)
		if !ok {
			return hold
		}
		p := hold
		if seg, ok := u.SegmentAt(tMs); ok && seg.Word != state.ActiveWord {
			p.Word = seg.Word
			p.Changed = true
		}
		if tMs >= u.EndMs {
			return Proposal{Changed: true, Finish: true, BoundarySec: msToSec(u.EndMs)}
		}
		return p

	case ModeContinuous:
		h := ResolveHighlight(t.lookup, ModeContinuous, state.Collection, state.Target, tMs)
		if h.Target == nil {
			return hold
		}
		if !sameTarget(h.Target, state.Target) {
			return Proposal{Target: h.Target, Word: h.Word, Changed: true}
		}
		if h.Word != 0 && h.Word != state.ActiveWord {
			return Proposal{Target: state.Target, Word: h.Word, Changed: true}
		}
		return hold
	}

	return hold
}

func msToSec(ms int) float64 {
	return float64(ms) / 1000
}

// secToMs converts a stream position to whole milliseconds. The epsilon
// absorbs the error of msToSec, so a seek to a segment start maps back to
// that start.
func secToMs(sec float64) int {
	return int(math.Floor(sec*1000 + 1e-6))
}
