package playback

import (
	"context"
	"math"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/versesync/internal/app/source"
	"github.com/osa030/versesync/internal/domain/media"
	"github.com/osa030/versesync/internal/domain/recitation"
	"github.com/osa030/versesync/internal/infra/logger"
)

var log = logger.Component("playback")

// Errors
var (
	ErrSourceUnavailable = errors.New("no playable audio source")
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrUnknownWord       = errors.New("unknown word")
	ErrCollectionChanged = errors.New("collection changed during source resolution")
	ErrInvalidCollection = errors.New("invalid collection")
)

// Stream is the part of the audio stream the controller drives.
type Stream interface {
	Play() error
	Pause()
	Seek(sec float64)
	Position() float64
}

// Resolver makes the stream's source playable for a collection.
type Resolver interface {
	Resolve(ctx context.Context, collection int) source.Result
}

// Catalog provides unit timing and collection audio metadata.
type Catalog interface {
	Lookup
	AudioMeta(collection int) (url string, durationSec float64, ok bool)
}

// eventBuffer is the event channel capacity. Position events only use the
// first half, so state changes always find room behind a slow consumer.
const eventBuffer = 64

// Config holds controller configuration.
type Config struct {
	Collection int // Collection selected at start
}

// Controller owns the playback state and applies operations and stream
// signals to it one at a time.
type Controller struct {
	mu sync.Mutex

	stream   Stream
	resolver Resolver
	catalog  Catalog
	tracker  *Tracker

	state State

	// Source readiness for state.Collection; reset on every collection change.
	sourceReady bool
	epoch       uint64

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(stream Stream, resolver Resolver, catalog Catalog, config Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		stream:   stream,
		resolver: resolver,
		catalog:  catalog,
		tracker:  NewTracker(catalog),
		eventCh:  make(chan Event, eventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state = c.freshStateLocked(config.Collection)
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Close stops event delivery.
func (c *Controller) Close() {
	c.cancel()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SetCollection selects a collection. The highlight is cleared, the stream is
// paused and the source will be resolved again on the next transition.
func (c *Controller) SetCollection(collection int) error {
	if collection < 1 {
		return errors.Wrapf(ErrInvalidCollection, "collection %d", collection)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.sourceReady = false
	c.stream.Pause()
	c.state = c.freshStateLocked(collection)

	log.Debug().Msgf("collection selected: collection=%d duration=%.3f", collection, c.state.DurationSec)
	c.sendEventLocked(EventCollectionChanged)
	return nil
}

// PlayUnit plays a single unit from its start and stops at its end.
func (c *Controller) PlayUnit(ctx context.Context, unit int) error {
	var u recitation.Unit
	err := c.begin(ctx, func(collection int) error {
		var ok bool
		if u, ok = c.catalog.Unit(collection, unit); !ok {
			return errors.Wrapf(ErrUnknownUnit, "unit %s", recitation.UnitKey(collection, unit))
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	c.state.Mode = ModeUnit
	c.state.Target = &recitation.Target{Collection: u.Collection, Unit: u.ID}
	c.state.ActiveWord = 0
	c.seekLocked(msToSec(u.StartMs))
	c.playLocked()

	log.Debug().Msgf("play unit: target=%s start_ms=%d end_ms=%d", c.state.Target, u.StartMs, u.EndMs)
	c.sendEventLocked(EventStateChanged)
	return nil
}

// PlayFromWord plays a unit starting at the given word.
func (c *Controller) PlayFromWord(ctx context.Context, unit, word int) error {
	var u recitation.Unit
	var seg recitation.Segment
	err := c.begin(ctx, func(collection int) error {
		var ok bool
		if u, ok = c.catalog.Unit(collection, unit); !ok {
			return errors.Wrapf(ErrUnknownUnit, "unit %s", recitation.UnitKey(collection, unit))
		}
		if seg, ok = u.SegmentFor(word); !ok {
			return errors.Wrapf(ErrUnknownWord, "word %s", recitation.WordKey(collection, unit, word))
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	c.state.Mode = ModeUnit
	c.state.Target = &recitation.Target{Collection: u.Collection, Unit: u.ID}
	c.state.ActiveWord = seg.Word
	c.seekLocked(msToSec(seg.StartMs))
	c.playLocked()

	log.Debug().Msgf("play from word: target=%s word=%d start_ms=%d", c.state.Target, seg.Word, seg.StartMs)
	c.sendEventLocked(EventStateChanged)
	return nil
}

// PlayContinuous plays the collection from its first unit.
func (c *Controller) PlayContinuous(ctx context.Context) error {
	return c.playContinuous(ctx, 0, false)
}

// PlayContinuousFrom plays the collection from the given unit. An unknown
// unit starts from the beginning of the audio with no target.
func (c *Controller) PlayContinuousFrom(ctx context.Context, unit int) error {
	return c.playContinuous(ctx, unit, true)
}

func (c *Controller) playContinuous(ctx context.Context, unit int, explicit bool) error {
	if err := c.begin(ctx, nil); err != nil {
		return err
	}
	defer c.mu.Unlock()

	collection := c.state.Collection
	if !explicit {
		unit = 0
		if units := c.catalog.UnitsOf(collection); len(units) > 0 {
			unit = units[0]
		}
	}

	c.state.Mode = ModeContinuous
	c.state.ActiveWord = 0
	if u, ok := c.catalog.Unit(collection, unit); ok {
		c.state.Target = &recitation.Target{Collection: collection, Unit: u.ID}
		c.seekLocked(msToSec(u.StartMs))
	} else {
		c.state.Target = nil
		c.seekLocked(0)
	}
	c.playLocked()

	log.Debug().Msgf("play continuous: collection=%d target=%s position=%.3f", collection, c.state.Target, c.state.PositionSec)
	c.sendEventLocked(EventStateChanged)
	return nil
}

// Stop pauses the stream and clears the highlight. The position is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stream.Pause()
	c.state.Mode = ModeIdle
	c.state.Target = nil
	c.state.ActiveWord = 0
	c.state.IsPlaying = false

	log.Debug().Msgf("stopped: position=%.3f", c.state.PositionSec)
	c.sendEventLocked(EventStateChanged)
}

// Pause pauses the stream. Mode and highlight are kept.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stream.Pause()
	c.state.IsPlaying = false

	log.Debug().Msgf("paused: mode=%s position=%.3f", c.state.Mode, c.state.PositionSec)
	c.sendEventLocked(EventStateChanged)
}

// Resume plays the stream again in the current mode.
func (c *Controller) Resume(ctx context.Context) error {
	if err := c.begin(ctx, nil); err != nil {
		return err
	}
	defer c.mu.Unlock()

	c.playLocked()
	log.Debug().Msgf("resumed: mode=%s position=%.3f", c.state.Mode, c.state.PositionSec)
	return nil
}

// Seek moves the stream to sec and switches to continuous mode. The
// position is clamped to [0, duration]; an unknown duration does not bound it.
func (c *Controller) Seek(ctx context.Context, sec float64) error {
	if err := c.begin(ctx, nil); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	if d := c.state.DurationSec; d > 0 && !math.IsNaN(d) && sec > d {
		sec = d
	}

	c.seekLocked(sec)
	c.state.Mode = ModeContinuous

	log.Debug().Msgf("seek: position=%.3f", sec)
	c.sendEventLocked(EventStateChanged)
	return nil
}

// HandleSignal applies a stream signal to the state.
func (c *Controller) HandleSignal(s media.Signal) {
	if s.Type.IsLoad() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch s.Type {
	case media.SignalPlay:
		c.state.IsPlaying = true
		c.sendEventLocked(EventStateChanged)

	case media.SignalPause:
		if c.state.IsPlaying {
			c.state.IsPlaying = false
			c.sendEventLocked(EventStateChanged)
		}

	case media.SignalEnded:
		c.state.Mode = ModeIdle
		c.state.Target = nil
		c.state.ActiveWord = 0
		c.state.IsPlaying = false
		log.Debug().Msgf("stream ended: collection=%d", c.state.Collection)
		c.sendEventLocked(EventStreamEnded)

	case media.SignalTimeUpdate:
		c.handleTimeUpdateLocked()
	}
}

// handleTimeUpdateLocked reads the stream position at handling time, so a
// queued update never moves the highlight backwards after a seek.
// Must be called with lock held.
func (c *Controller) handleTimeUpdateLocked() {
	pos := c.stream.Position()
	c.state.PositionSec = pos

	p := c.tracker.Next(c.state, secToMs(pos))
	switch {
	case p.Finish:
		c.stream.Pause()
		c.seekLocked(p.BoundarySec)
		c.state.Mode = ModeIdle
		c.state.Target = nil
		c.state.ActiveWord = 0
		c.state.IsPlaying = false
		log.Debug().Msgf("unit finished: position=%.3f", p.BoundarySec)
		c.sendEventLocked(EventUnitFinished)

	case p.Changed:
		c.state.Target = p.Target
		c.state.ActiveWord = p.Word
		c.sendEventLocked(EventHighlightChanged)

	default:
		c.sendEventLocked(EventPosition)
	}
}

// begin checks the request against the current collection and makes sure
// the stream has a loaded source. On success it returns with the lock held.
// Resolution runs unlocked; its result is dropped if the collection changed.
func (c *Controller) begin(ctx context.Context, check func(collection int) error) error {
	c.mu.Lock()
	if check != nil {
		if err := check(c.state.Collection); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	if c.sourceReady {
		return nil
	}
	collection, epoch := c.state.Collection, c.epoch
	c.mu.Unlock()

	result := c.resolver.Resolve(ctx, collection)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return errors.Wrapf(ErrCollectionChanged, "collection %d", collection)
	}
	if !result.Ready {
		c.mu.Unlock()
		return errors.Wrapf(ErrSourceUnavailable, "collection %d", collection)
	}
	c.sourceReady = true
	if result.DurationSec > 0 {
		c.state.DurationSec = result.DurationSec
	}
	return nil
}

// freshStateLocked returns the idle state for a collection, with the
// metadata duration until the stream reports its own.
func (c *Controller) freshStateLocked(collection int) State {
	s := State{Collection: collection, Mode: ModeIdle}
	if _, d, ok := c.catalog.AudioMeta(collection); ok && d > 0 {
		s.DurationSec = d
	}
	return s
}

func (c *Controller) seekLocked(sec float64) {
	c.stream.Seek(sec)
	c.state.PositionSec = sec
}

// playLocked starts the stream. A rejected play is not an operation failure.
func (c *Controller) playLocked() {
	if err := c.stream.Play(); err != nil {
		log.Warn().Msgf("stream rejected play: collection=%d error=%v", c.state.Collection, err)
	}
}

// sendEventLocked queues an event. Position events are dropped when the
// consumer falls behind. Other events wait for room until the controller is
// closed.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType) {
	e := Event{Type: t, State: c.state.clone()}

	if t == EventPosition {
		if len(c.eventCh) >= eventBuffer/2 {
			log.Debug().Msg("consumer behind, dropping position event")
			return
		}
		select {
		case c.eventCh <- e:
		default:
		}
		return
	}

	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	}
}
