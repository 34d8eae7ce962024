package engine

import (
	"sync"

	"autotrader/internal/domain"
)

// Broadcaster fans activity records out to live subscribers. Slow
// subscribers drop records rather than stall the engine.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.ActivityRecord
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.ActivityRecord)}
}

func (b *Broadcaster) Subscribe(buffer int) (<-chan domain.ActivityRecord, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.ActivityRecord, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(rec domain.ActivityRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
