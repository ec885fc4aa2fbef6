package api

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/talgya/stormfield/internal/engine"
)

// streamBuffer is how many encoded snapshots a slow subscriber may lag behind
// before ticks are dropped for it.
const streamBuffer = 8

// Hub fans tick snapshots out to websocket subscribers. It is an engine.Sink.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
	closed bool
	last   []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan []byte)}
}

var _ engine.Sink = (*Hub)(nil)

// Publish encodes snap once and offers it to every subscriber. A subscriber
// whose buffer is full misses this tick.
func (h *Hub) Publish(snap engine.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.last = b
	for id, ch := range h.subs {
		select {
		case ch <- b:
		default:
			slog.Debug("stream subscriber lagging", "sub", id, "tick", snap.Tick)
		}
	}
	return nil
}

// Subscribe registers a new subscriber. The channel is closed when the hub
// closes or the subscriber leaves. ok is false once the hub is closed.
func (h *Hub) Subscribe() (id uint64, ch <-chan []byte, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	h.nextID++
	c := make(chan []byte, streamBuffer)
	if h.last != nil {
		c <- h.last
	}
	h.subs[h.nextID] = c
	return h.nextID, c, true
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	return nil
}
