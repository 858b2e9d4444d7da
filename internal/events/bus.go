package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryBus fans events out to in-process subscribers. Subscriber channels
// are buffered and never block the publisher; an event is dropped for a
// subscriber whose buffer is full.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
	logger *zap.Logger
}

// NewMemoryBus creates an in-process event bus.
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBus{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given buffer size and returns its
// channel plus a cancel function. The channel is closed on cancel or bus close.
func (b *MemoryBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *MemoryBus) Publish(_ context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				zap.String("type", string(event.Type)),
				zap.String("key", event.Key()))
		}
	}
	return nil
}

// Close closes all subscriber channels.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
