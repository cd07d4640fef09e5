// Package session provides the session manager.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/versesync/internal/app/index"
	"github.com/osa030/versesync/internal/app/notification"
	"github.com/osa030/versesync/internal/app/playback"
	"github.com/osa030/versesync/internal/app/source"
	"github.com/osa030/versesync/internal/domain/recitation"
	"github.com/osa030/versesync/internal/infra/config"
	"github.com/osa030/versesync/internal/infra/stream"
)

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrUnitNotFound  = errors.New("unit not found")
)

// UnitInfo is what the presentation layer needs to render a unit.
type UnitInfo struct {
	Unit   recitation.Unit
	Words  []recitation.Word
	Text   string
	Timed  bool   // The unit has segments and can be played
	Length string // m:ss label, empty when untimed
}

// Manager hosts one playback session: a stream, the source resolver, the
// controller driving the stream, and the broadcaster for its events.
type Manager struct {
	mu sync.RWMutex

	id        string
	startedAt time.Time

	// Components
	index        *index.Index
	stream       *stream.Clock
	playback     *playback.Controller
	notification *notification.Manager

	unsubscribe func()

	// Channels
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewManager creates a session over the given stream. The session owns the
// stream from here on and closes it on Close.
func NewManager(cfg *config.Config, idx *index.Index, clock *stream.Clock) (*Manager, error) {
	resolver, err := source.NewResolverFromConfig(cfg.Audio, clock, idx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create source resolver")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		id:        uuid.New().String(),
		startedAt: time.Now(),
		index:     idx,
		stream:    clock,
		playback: playback.NewController(clock, resolver, idx, playback.Config{
			Collection: cfg.Playback.DefaultCollection,
		}),
		notification: notification.NewManager(notification.Config{
			MaxPositionUpdatesPerSec: cfg.Notification.MaxPositionUpdatesPerSec,
		}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	return m, nil
}

// Start wires the stream to the controller and starts the event loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsubscribe != nil || m.closed {
		return
	}
	m.unsubscribe = m.stream.Subscribe(m.playback.HandleSignal)
	go m.playbackLoop()

	state := m.playback.Snapshot()
	zlog.Info().Msgf("session started: session_id=%s collection=%d", m.id, state.Collection)
}

// ID returns the session id.
func (m *Manager) ID() string {
	return m.id
}

// StartedAt returns when the session was created.
func (m *Manager) StartedAt() time.Time {
	return m.startedAt
}

// Playback returns the playback controller.
func (m *Manager) Playback() *playback.Controller {
	return m.playback
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// SetCollection selects the collection to play.
func (m *Manager) SetCollection(collection int) (recitation.Collection, error) {
	if m.isClosed() {
		return recitation.Collection{}, ErrSessionClosed
	}
	c, ok := m.index.Collection(collection)
	if !ok {
		// Unknown collections are still selectable; they just have nothing to play.
		c = recitation.Collection{ID: collection}
	}
	if err := m.playback.SetCollection(collection); err != nil {
		return recitation.Collection{}, err
	}
	zlog.Info().Msgf("collection selected: session_id=%s collection=%d units=%d", m.id, collection, len(c.Units))
	return c, nil
}

// GetUnit returns the words and timing of a unit.
func (m *Manager) GetUnit(collection, unit int) (*UnitInfo, error) {
	info := &UnitInfo{
		Words: m.index.Words(collection, unit),
		Text:  m.index.UnitText(collection, unit),
	}
	if u, ok := m.index.Unit(collection, unit); ok {
		info.Unit = u
		info.Timed = true
		info.Length = recitation.LengthLabel(u.Length())
	} else {
		info.Unit = recitation.Unit{Collection: collection, ID: unit}
	}

	if !info.Timed && len(info.Words) == 0 {
		return nil, errors.Wrapf(ErrUnitNotFound, "unit %s", recitation.UnitKey(collection, unit))
	}
	return info, nil
}

// Done returns a channel closed when the session has shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops the event loop and releases the stream.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.mu.Unlock()

	m.cancel()
	m.playback.Close()
	m.stream.Close()
	m.notification.Close()
	close(m.done)
	zlog.Info().Msgf("session closed: session_id=%s", m.id)
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// playbackLoop forwards playback events to subscribers.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			// Restart loop to prevent zombie session
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.playback.Events():
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	switch event.Type {
	case playback.EventPosition:
		// Too frequent for info.
	case playback.EventUnitFinished, playback.EventStreamEnded, playback.EventCollectionChanged:
		zlog.Info().Msgf("playback event: type=%s collection=%d position=%.3f",
			event.Type, event.State.Collection, event.State.PositionSec)
	default:
		zlog.Debug().Msgf("playback event: type=%s mode=%s target=%v word=%d",
			event.Type, event.State.Mode, event.State.Target, event.State.ActiveWord)
	}

	m.notification.Publish(event)
}
