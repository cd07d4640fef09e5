package stream

import (
	"sync"

	"github.com/osa030/versesync/internal/domain/media"
)

// dispatcher delivers queued signals in order on one goroutine.
// push never blocks, so it is safe to call with the stream lock held
// and from inside a listener.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []media.Signal
	closed  bool
	deliver func(media.Signal)
	done    chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *dispatcher) push(s media.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, s)
	d.cond.Signal()
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		s := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.safeDeliver(s)
	}
}

func (d *dispatcher) safeDeliver(s media.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("listener panicked on %s: %v", s.Type, r)
		}
	}()
	d.deliver(s)
}

// close stops the dispatch goroutine; queued signals are dropped.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.queue = nil
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}
