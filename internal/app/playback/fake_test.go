package playback

import (
	"context"
	"sync"

	"github.com/osa030/versesync/internal/app/source"
	"github.com/osa030/versesync/internal/domain/recitation"
)

// fakeStream records the calls the controller makes. It never emits signals;
// tests feed signals to the controller directly.
type fakeStream struct {
	mu       sync.Mutex
	position float64
	seeks    []float64
	plays    int
	pauses   int
	playErr  error
}

func (s *fakeStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	return s.playErr
}

func (s *fakeStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
}

func (s *fakeStream) Seek(sec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, sec)
	s.position = sec
}

func (s *fakeStream) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *fakeStream) setPosition(sec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = sec
}

func (s *fakeStream) lastSeek() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seeks) == 0 {
		return 0, false
	}
	return s.seeks[len(s.seeks)-1], true
}

// fakeResolver returns a fixed result. before runs ahead of each resolve.
type fakeResolver struct {
	mu     sync.Mutex
	result source.Result
	calls  int
	before func()
}

func (r *fakeResolver) Resolve(ctx context.Context, collection int) source.Result {
	r.mu.Lock()
	r.calls++
	before := r.before
	result := r.result
	r.mu.Unlock()

	if before != nil {
		before()
	}
	return result
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeCatalog serves units from memory.
type fakeCatalog struct {
	units     map[int][]recitation.Unit
	durations map[int]float64
}

func (c *fakeCatalog) Unit(collection, unit int) (recitation.Unit, bool) {
	for _, u := range c.units[collection] {
		if u.ID == unit {
			return u, true
		}
	}
	return recitation.Unit{}, false
}

func (c *fakeCatalog) UnitsOf(collection int) []int {
	var ids []int
	for _, u := range c.units[collection] {
		ids = append(ids, u.ID)
	}
	return ids
}

func (c *fakeCatalog) AudioMeta(collection int) (string, float64, bool) {
	d, ok := c.durations[collection]
	return "", d, ok
}

// testCatalog builds collection 1 with three units:
//
//	unit 1: [500, 4000)  words 1..3
//	unit 2: [4500, 6000) words 1..2 (gap before it)
//	unit 3: [6000, 8000) word 1 at [6500, 7000)
//
// Collection 2 has metadata but no timing.
func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		units: map[int][]recitation.Unit{
			1: {
				recitation.NewUnit(1, 1, []recitation.Segment{
					{Word: 1, StartMs: 500, EndMs: 1000},
					{Word: 2, StartMs: 1000, EndMs: 2500},
					{Word: 3, StartMs: 2500, EndMs: 4000},
				}, 0, 0),
				recitation.NewUnit(1, 2, []recitation.Segment{
					{Word: 1, StartMs: 4500, EndMs: 5000},
					{Word: 2, StartMs: 5000, EndMs: 6000},
				}, 0, 0),
				recitation.NewUnit(1, 3, []recitation.Segment{
					{Word: 1, StartMs: 6500, EndMs: 7000},
				}, 6000, 8000),
			},
		},
		durations: map[int]float64{1: 8, 2: 0},
	}
}

func newTestController() (*Controller, *fakeStream, *fakeResolver) {
	stream := &fakeStream{}
	resolver := &fakeResolver{result: source.Result{Ready: true, Source: "/audio/1.mp3", DurationSec: 8}}
	c := NewController(stream, resolver, testCatalog(), Config{Collection: 1})
	return c, stream, resolver
}
