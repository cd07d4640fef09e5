// Package recitation provides the Segment, Unit and Collection domain entities.
package recitation

import (
	"fmt"
	"sort"
	"time"
)

// Segment is the time range of one word within a unit.
// The range is half-open: [StartMs, EndMs).
type Segment struct {
	Word    int // 1-based word index within the unit
	StartMs int // Start offset in the collection audio (ms)
	EndMs   int // End offset in the collection audio (ms, exclusive)
}

// Contains reports whether ms falls inside the segment.
func (s Segment) Contains(ms int) bool {
	return ms >= s.StartMs && ms < s.EndMs
}

// Valid reports whether the segment satisfies the basic invariants.
func (s Segment) Valid() bool {
	return s.Word >= 1 && s.StartMs >= 0 && s.EndMs > s.StartMs
}

// Unit is an addressable span of text (e.g. a verse) with its word segments.
type Unit struct {
	Collection int       // Collection the unit belongs to
	ID         int       // Unit number within the collection
	Segments   []Segment // Sorted ascending by StartMs, non-overlapping
	StartMs    int       // Start of the unit in the collection audio
	EndMs      int       // End of the unit in the collection audio (exclusive)
}

// NewUnit builds a unit from raw segments. Invalid segments are dropped,
// the rest are sorted by start time. startMs/endMs are used when endMs > startMs,
// otherwise the bounds are derived from the segments.
func NewUnit(collection, id int, segments []Segment, startMs, endMs int) Unit {
	segs := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Valid() {
			segs = append(segs, s)
		}
	}
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].StartMs < segs[j].StartMs
	})

	if endMs <= startMs && len(segs) > 0 {
		startMs = segs[0].StartMs
		endMs = segs[0].EndMs
		for _, s := range segs[1:] {
			if s.EndMs > endMs {
				endMs = s.EndMs
			}
		}
	}

	return Unit{
		Collection: collection,
		ID:         id,
		Segments:   segs,
		StartMs:    startMs,
		EndMs:      endMs,
	}
}

// Contains reports whether ms falls inside the unit's [StartMs, EndMs) range.
func (u Unit) Contains(ms int) bool {
	return ms >= u.StartMs && ms < u.EndMs
}

// SegmentAt returns the segment containing ms.
// Segments are sorted and non-overlapping, so at most one matches.
func (u Unit) SegmentAt(ms int) (Segment, bool) {
	// First segment whose end is past ms; it matches if it has started.
	i := sort.Search(len(u.Segments), func(i int) bool {
		return u.Segments[i].EndMs > ms
	})
	if i < len(u.Segments) && u.Segments[i].Contains(ms) {
		return u.Segments[i], true
	}
	return Segment{}, false
}

// SegmentFor returns the segment of the given word.
func (u Unit) SegmentFor(word int) (Segment, bool) {
	for _, s := range u.Segments {
		if s.Word == word {
			return s, true
		}
	}
	return Segment{}, false
}

// Length returns the audio length of the unit.
func (u Unit) Length() time.Duration {
	if u.EndMs <= u.StartMs {
		return 0
	}
	return time.Duration(u.EndMs-u.StartMs) * time.Millisecond
}

// Collection is an ordered sequence of units sharing one audio track.
type Collection struct {
	ID          int     // Collection number
	Units       []int   // Unit ids in ascending order
	AudioURL    string  // Remote audio location (empty if none)
	DurationSec float64 // Declared audio duration in seconds (0 if unknown)
}

// Target identifies the active unit.
type Target struct {
	Collection int `json:"collection"`
	Unit       int `json:"unit"`
}

// String returns the "collection:unit" form.
func (t Target) String() string {
	return UnitKey(t.Collection, t.Unit)
}

// Word is one displayable word of a unit.
type Word struct {
	Index int    `json:"index"` // 1-based within the unit
	Glyph string `json:"glyph"` // Display text (glyph code or fallback text)
	Text  string `json:"text"`  // Plain fallback text
}

// UnitKey returns the segment table key of a unit.
func UnitKey(collection, unit int) string {
	return fmt.Sprintf("%d:%d", collection, unit)
}

// WordKey returns the word table key of a word.
func WordKey(collection, unit, word int) string {
	return fmt.Sprintf("%d:%d:%d", collection, unit, word)
}
