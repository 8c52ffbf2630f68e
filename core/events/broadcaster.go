package events

import (
	"sync"

	"learnchain/core/types"
)

// Published is a committed event tagged with its position in the global log.
type Published struct {
	Sequence uint64       `json:"sequence"`
	Event    *types.Event `json:"event"`
}

// Broadcaster fans committed events out to subscribers. Slow subscribers
// drop events instead of blocking the node.
type Broadcaster struct {
	mu     sync.RWMutex
	seq    uint64
	nextID int
	subs   map[int]chan Published
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Published)}
}

// Emit implements Emitter.
func (b *Broadcaster) Emit(evt Event) {
	raw, ok := Unwrap(evt)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	msg := Published{Sequence: b.seq, Event: raw.Clone()}
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a buffered subscriber. The returned cancel function
// must be called to release it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Published, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Published, buffer)
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

// Sequence returns the sequence number of the last published event.
func (b *Broadcaster) Sequence() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}
