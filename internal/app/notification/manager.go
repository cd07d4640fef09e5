// Package notification broadcasts playback updates to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/osa030/versesync/internal/app/playback"
)

// DefaultSendTimeout bounds a single subscriber send.
const DefaultSendTimeout = 500 * time.Millisecond

// Update is one notification sent to subscribers.
type Update struct {
	Type       playback.EventType
	SequenceNo uint64
	State      playback.State
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Update) error
}

// Config holds manager configuration.
type Config struct {
	MaxPositionUpdatesPerSec float64       // Position-only updates above this rate are dropped
	SendTimeout              time.Duration // Per-subscriber send timeout
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	sequenceNo   uint64
	sequenceNoMu sync.Mutex

	positionLimiter *rate.Limiter
	sendTimeout     time.Duration
}

// NewManager creates a new notification manager.
func NewManager(config Config) *Manager {
	limit := rate.Inf
	if config.MaxPositionUpdatesPerSec > 0 {
		limit = rate.Limit(config.MaxPositionUpdatesPerSec)
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultSendTimeout
	}
	return &Manager{
		subscriptions:   make(map[string]*subscription),
		positionLimiter: rate.NewLimiter(limit, 1),
		sendTimeout:     config.SendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Publish broadcasts a playback event. Position-only events are rate limited;
// every other event is always sent. It reports whether the event was sent.
func (m *Manager) Publish(e playback.Event) bool {
	if e.Type == playback.EventPosition && !m.positionLimiter.Allow() {
		return false
	}
	m.Broadcast(&Update{Type: e.Type, State: e.State})
	return true
}

// Broadcast stamps the update with the next sequence number and sends it
// to all subscribers in parallel, each bounded by the send timeout.
func (m *Manager) Broadcast(update *Update) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	update.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(update)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed: subscription=%s error=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: subscription=%s seq=%d", s.id, update.SequenceNo)
			}
		}(sub)
	}

	wg.Wait()
}

// Send sends an update to a specific subscriber without consuming a sequence number.
func (m *Manager) Send(subscriptionID string, update *Update) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return sub.stream.Send(update)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
