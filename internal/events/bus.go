package events

import "sync"

// Handler receives events synchronously on the emitting goroutine. It must
// not block.
type Handler func(Event)

// Bus is an in-process publish/subscribe channel. Delivery is at-most-once:
// an event reaches only the handlers registered when Emit is called.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]Handler
	next uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]Handler)}
}

// Subscribe registers h and returns its unsubscribe function. Calling the
// returned function more than once is a no-op.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Emit delivers ev to a snapshot of the current subscribers, so handlers may
// unsubscribe (themselves or others) while being called.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Len returns the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
