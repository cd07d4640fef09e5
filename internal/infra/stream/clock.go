// Package stream provides a headless, clock-driven audio stream.
//
// Clock behaves like a host media element without producing sound: a source
// is assigned and loaded asynchronously, playback position advances with the
// wall clock while playing, and signals are delivered to listeners in order
// on a single dispatch goroutine.
package stream

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/versesync/internal/domain/media"
	"github.com/osa030/versesync/internal/infra/logger"
)

var log = logger.Component("stream")

// Errors
var (
	ErrNoSource = errors.New("no source set")
	ErrNotReady = errors.New("source is not ready")
	ErrClosed   = errors.New("stream is closed")
)

// Config holds stream configuration.
type Config struct {
	TickInterval  time.Duration // Interval between timeupdate signals while playing
	LocalRoot     string        // Directory local source paths are resolved against
	RemoteTimeout time.Duration // Timeout for probing remote sources
}

// Inspector checks that a source is loadable and reports its duration in seconds.
// A zero duration means unknown.
type Inspector func(ctx context.Context, src string) (float64, error)

// Clock is a headless audio stream.
type Clock struct {
	mu sync.Mutex

	config  Config
	inspect Inspector
	now     func() time.Time

	// Source state
	src        string
	loadGen    uint64
	loadCancel context.CancelFunc
	ready      bool
	duration   float64 // NaN when unknown

	// Playback state
	playing      bool
	position     float64   // Position at anchor (seconds)
	anchor       time.Time // Wall time the position was last anchored
	tickerCancel func()

	// Listeners
	listeners map[uint64]func(media.Signal)
	nextID    uint64

	dispatch *dispatcher
	closed   bool
}

// NewClock creates a new clock stream.
func NewClock(config Config) *Clock {
	if config.TickInterval <= 0 {
		config.TickInterval = 250 * time.Millisecond
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = 10 * time.Second
	}

	c := &Clock{
		config:    config,
		now:       time.Now,
		duration:  math.NaN(),
		listeners: make(map[uint64]func(media.Signal)),
		dispatch:  newDispatcher(),
	}
	c.inspect = newSourceInspector(config.LocalRoot, &http.Client{Timeout: config.RemoteTimeout})
	c.dispatch.deliver = c.deliver
	go c.dispatch.run()
	return c
}

// WithInspector replaces the source inspector. Intended for tests and custom hosts.
func (c *Clock) WithInspector(p Inspector) *Clock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inspect = p
	return c
}

// Subscribe registers a listener for all signals. The returned function removes it.
// Listeners run on the dispatch goroutine, one signal at a time.
func (c *Clock) Subscribe(fn func(media.Signal)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// SetSource replaces the current source. Any load in flight for the previous
// source is abandoned; the last assignment wins.
func (c *Clock) SetSource(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
	c.loadGen++

	wasPlaying := c.playing
	c.stopTickerLocked()
	c.playing = false
	c.src = src
	c.ready = false
	c.duration = math.NaN()
	c.position = 0
	c.anchor = c.now()

	if wasPlaying {
		c.emitLocked(media.Signal{Type: media.SignalPause})
	}
}

// Source returns the current source.
func (c *Clock) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src
}

// Load starts loading the current source. The outcome is reported with
// SignalLoadedMetadata and SignalCanPlay, or SignalError.
func (c *Clock) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.loadCancel != nil {
		c.loadCancel()
	}
	c.loadGen++
	gen := c.loadGen
	src := c.src

	if src == "" {
		c.emitLocked(media.Signal{Type: media.SignalError, Err: ErrNoSource})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.loadCancel = cancel
	inspect := c.inspect

	go func() {
		durationSec, err := inspect(ctx, src)
		c.finishLoad(gen, src, durationSec, err)
	}()
}

func (c *Clock) finishLoad(gen uint64, src string, durationSec float64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer SetSource or Load superseded this one.
	if c.closed || gen != c.loadGen {
		log.Debug().Msgf("dropping stale load result: src=%s", src)
		return
	}
	c.loadCancel = nil

	if err != nil {
		log.Debug().Msgf("load failed: src=%s error=%v", src, err)
		c.emitLocked(media.Signal{Type: media.SignalError, Err: err})
		return
	}

	c.ready = true
	if durationSec > 0 && !math.IsInf(durationSec, 0) {
		c.duration = durationSec
	} else {
		c.duration = math.NaN()
	}
	log.Debug().Msgf("loaded: src=%s duration=%.3f", src, c.duration)

	c.emitLocked(media.Signal{Type: media.SignalLoadedMetadata})
	c.emitLocked(media.Signal{Type: media.SignalCanPlay})
}

// Play starts or resumes playback from the current position.
func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.ready {
		return ErrNotReady
	}
	if c.playing {
		return nil
	}

	// Playing at the end starts over.
	if !math.IsNaN(c.duration) && c.position >= c.duration {
		c.position = 0
	}

	c.playing = true
	c.anchor = c.now()
	c.startTickerLocked()
	c.emitLocked(media.Signal{Type: media.SignalPlay})
	return nil
}

// Pause pauses playback. Pausing a paused stream does nothing.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return
	}
	c.position = c.positionLocked()
	c.anchor = c.now()
	c.playing = false
	c.stopTickerLocked()
	c.emitLocked(media.Signal{Type: media.SignalPause})
}

// Seek moves the playback position. The position is clamped to the known duration.
func (c *Clock) Seek(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	if !math.IsNaN(c.duration) && sec > c.duration {
		sec = c.duration
	}
	c.position = sec
	c.anchor = c.now()
	c.emitLocked(media.Signal{Type: media.SignalTimeUpdate})
}

// Position returns the current playback position in seconds.
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Duration returns the source duration in seconds, NaN when unknown.
func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetDuration supplies the duration of a source that did not report one,
// such as a remote source. A duration reported by the source is kept.
func (c *Clock) SetDuration(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready || !math.IsNaN(c.duration) {
		return
	}
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return
	}
	c.duration = sec
	log.Debug().Msgf("duration supplied: src=%s duration=%.3f", c.src, sec)
}

// Playing reports whether the stream is playing.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Close stops playback and the dispatch goroutine.
func (c *Clock) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
	c.stopTickerLocked()
	c.playing = false
	c.mu.Unlock()

	c.dispatch.close()
}

func (c *Clock) positionLocked() float64 {
	pos := c.position
	if c.playing {
		pos += c.now().Sub(c.anchor).Seconds()
	}
	if !math.IsNaN(c.duration) && pos > c.duration {
		pos = c.duration
	}
	return pos
}

// tick emits the periodic time update and detects the end of the stream.
func (c *Clock) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return
	}

	pos := c.positionLocked()
	if !math.IsNaN(c.duration) && pos >= c.duration {
		c.position = c.duration
		c.anchor = c.now()
		c.playing = false
		c.stopTickerLocked()
		c.emitLocked(media.Signal{Type: media.SignalTimeUpdate})
		c.emitLocked(media.Signal{Type: media.SignalPause})
		c.emitLocked(media.Signal{Type: media.SignalEnded})
		return
	}
	c.emitLocked(media.Signal{Type: media.SignalTimeUpdate})
}

func (c *Clock) startTickerLocked() {
	c.stopTickerLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.tickerCancel = cancel
	interval := c.config.TickInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

func (c *Clock) stopTickerLocked() {
	if c.tickerCancel != nil {
		c.tickerCancel()
		c.tickerCancel = nil
	}
}

// emitLocked stamps a signal with the current source and position and queues it.
// Must be called with lock held; delivery happens on the dispatch goroutine.
func (c *Clock) emitLocked(s media.Signal) {
	s.Source = c.src
	s.PositionSec = c.positionLocked()
	c.dispatch.push(s)
}

func (c *Clock) deliver(s media.Signal) {
	c.mu.Lock()
	fns := make([]func(media.Signal), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
