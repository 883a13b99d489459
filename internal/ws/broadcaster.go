// Package ws fans out alert events to connected websocket clients.
package ws

import (
	"sync"
	"sync/atomic"
)

// Event is a named realtime event, serialized as-is to every listener.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// subscriberBuffer bounds how many undelivered events a single listener
// may hold before broadcasts to it are dropped.
const subscriberBuffer = 32

type Broadcaster struct {
	subscribers map[uint64]chan Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Event),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast delivers ev to every current subscriber. Fire-and-forget:
// nothing is persisted when no listener is connected, and listeners whose
// buffers are full miss the event.
func (b *Broadcaster) Broadcast(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing connected streams to exit
// gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
