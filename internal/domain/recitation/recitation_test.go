package recitation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUnit() Unit {
	return NewUnit(1, 2, []Segment{
		{Word: 3, StartMs: 1000, EndMs: 1500},
		{Word: 1, StartMs: 0, EndMs: 400},
		{Word: 2, StartMs: 400, EndMs: 1000},
	}, 0, 0)
}

func TestNewUnit_SortsAndDerivesBounds(t *testing.T) {
	u := testUnit()

	require.Len(t, u.Segments, 3)
	assert.Equal(t, 1, u.Segments[0].Word)
	assert.Equal(t, 2, u.Segments[1].Word)
	assert.Equal(t, 3, u.Segments[2].Word)
	assert.Equal(t, 0, u.StartMs)
	assert.Equal(t, 1500, u.EndMs)
}

func TestNewUnit_DeclaredBoundsAndInvalidSegments(t *testing.T) {
	u := NewUnit(1, 1, []Segment{
		{Word: 1, StartMs: 100, EndMs: 200},
		{Word: 0, StartMs: 200, EndMs: 300}, // word index must be >= 1
		{Word: 2, StartMs: 300, EndMs: 300}, // empty range
		{Word: 3, StartMs: -10, EndMs: 100}, // negative start
	}, 50, 900)

	require.Len(t, u.Segments, 1)
	assert.Equal(t, 50, u.StartMs)
	assert.Equal(t, 900, u.EndMs)
}

func TestUnit_SegmentAt(t *testing.T) {
	u := testUnit()

	tests := []struct {
		name     string
		ms       int
		wantWord int
		wantOK   bool
	}{
		{name: "unit start", ms: 0, wantWord: 1, wantOK: true},
		{name: "inside first word", ms: 399, wantWord: 1, wantOK: true},
		{name: "boundary belongs to next word", ms: 400, wantWord: 2, wantOK: true},
		{name: "last word", ms: 1499, wantWord: 3, wantOK: true},
		{name: "unit end is exclusive", ms: 1500, wantOK: false},
		{name: "before unit", ms: -1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := u.SegmentAt(tt.ms)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantWord, seg.Word)
			}
		})
	}
}

func TestUnit_SegmentAt_ExactlyOneMatch(t *testing.T) {
	u := testUnit()

	for ms := u.StartMs; ms < u.EndMs; ms++ {
		matches := 0
		for _, s := range u.Segments {
			if s.Contains(ms) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "ms=%d", ms)

		seg, ok := u.SegmentAt(ms)
		require.True(t, ok, "ms=%d", ms)
		require.True(t, seg.Contains(ms), "ms=%d", ms)
	}
}

func TestUnit_SegmentAt_Gap(t *testing.T) {
	u := NewUnit(1, 1, []Segment{
		{Word: 1, StartMs: 0, EndMs: 100},
		{Word: 2, StartMs: 200, EndMs: 300},
	}, 0, 0)

	_, ok := u.SegmentAt(150)
	assert.False(t, ok)
	seg, ok := u.SegmentAt(200)
	assert.True(t, ok)
	assert.Equal(t, 2, seg.Word)
}

func TestUnit_SegmentFor(t *testing.T) {
	u := testUnit()

	seg, ok := u.SegmentFor(2)
	assert.True(t, ok)
	assert.Equal(t, 400, seg.StartMs)

	_, ok = u.SegmentFor(9)
	assert.False(t, ok)
}

func TestUnit_Length(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, testUnit().Length())
	assert.Equal(t, time.Duration(0), Unit{}.Length())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "1:7", UnitKey(1, 7))
	assert.Equal(t, "1:7:3", WordKey(1, 7, 3))
	assert.Equal(t, "2:10", Target{Collection: 2, Unit: 10}.String())
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", FormatClock(0))
	assert.Equal(t, "0:05", FormatClock(5.9))
	assert.Equal(t, "1:05", FormatClock(65))
	assert.Equal(t, "0:00", FormatClock(-3))
	assert.Equal(t, "12:00", FormatClock(720))
}

func TestLengthLabel(t *testing.T) {
	assert.Equal(t, "0:02", LengthLabel(1500*time.Millisecond))
	assert.Equal(t, "1:01", LengthLabel(61*time.Second))
}
