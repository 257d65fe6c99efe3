package session

import (
	"sync"

	"github.com/memorial-automator/client/internal/models"
)

// subscriberBuffer is how many views a slow subscriber may lag behind
// before older views are dropped.
const subscriberBuffer = 16

// Broadcaster fans rendered views out to subscribers (websocket clients).
// Render never blocks: when a subscriber is full its oldest view is dropped,
// so each subscriber always ends up with the latest view.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan models.View]struct{}
	last   models.View
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan models.View]struct{})}
}

// Render implements workflow.Renderer.
func (b *Broadcaster) Render(v models.View) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last = v
	for ch := range b.subs {
		push(ch, v)
	}
}

// Subscribe returns a channel primed with the latest view and a function
// that cancels the subscription.
func (b *Broadcaster) Subscribe(current models.View) (<-chan models.View, func()) {
	ch := make(chan models.View, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if b.last.Revision > current.Revision {
		current = b.last
	}
	ch <- current
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func push(ch chan models.View, v models.View) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
