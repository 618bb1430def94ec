package identity

import "sync"

// Event announces an identity-state change: a sign-in or sign-out for uid.
type Event struct {
	UID      string
	SignedIn bool
}

// Broker is the process-wide identity subscription: initialized once at
// startup, observed wherever a surface cares about the current identity
// changing underneath it (live feeds close on sign-out).
type Broker struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of identity events and its cancel handle.
// Delivery is non-blocking; a subscriber that stops draining misses events
// rather than stalling the publisher.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 4)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
