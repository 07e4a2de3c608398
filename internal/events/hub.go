// Package events fans playback notifications out to any number of consumers.
package events

import (
	"sync"

	"github.com/google/uuid"

	"timemachine/internal/playback"
)

// Kind distinguishes the two notification types.
type Kind string

const (
	KindState Kind = "state"
	KindChunk Kind = "chunk"
)

// Event is one notification. Exactly one of State or Chunk is set.
type Event struct {
	Kind  Kind
	State *playback.Session
	Chunk *playback.Chunk
}

// Filter selects which kinds a subscriber wants.
type Filter struct {
	States bool
	Chunks bool
}

// Subscriber receives events on C until it is unsubscribed.
type Subscriber struct {
	ID     string
	C      chan Event
	filter Filter

	mu      sync.Mutex
	dropped uint64
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscriber) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Hub implements playback.Sink. Publishing never blocks: a subscriber whose
// buffer is full loses the event instead of stalling the read loop.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscriber)}
}

// Subscribe registers a subscriber with a buffer of size events.
func (h *Hub) Subscribe(filter Filter, size int) *Subscriber {
	if size <= 0 {
		size = 64
	}
	s := &Subscriber{
		ID:     uuid.NewString(),
		C:      make(chan Event, size),
		filter: filter,
	}
	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.ID]; !ok {
		return
	}
	delete(h.subs, s.ID)
	close(s.C)
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) OnState(s playback.Session) {
	h.publish(Event{Kind: KindState, State: &s})
}

func (h *Hub) OnChunk(c playback.Chunk) {
	h.publish(Event{Kind: KindChunk, Chunk: &c})
}

func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		if ev.Kind == KindState && !s.filter.States {
			continue
		}
		if ev.Kind == KindChunk && !s.filter.Chunks {
			continue
		}
		select {
		case s.C <- ev:
		default:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		}
	}
}
