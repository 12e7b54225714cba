package fastview

import (
	"context"
	"sync"
)

// Hub fans element updates out to any number of page clients. Each subscription coalesces
// what it has not yet sent, so a slow client skips intermediate values but always converges
// on the latest state, and a stalled client never blocks the others.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[*Subscription]struct{}{}}
}

// Subscription is one client's view of the hub.
type Subscription struct {
	hub     *Hub
	mu      sync.Mutex
	pending *Batch
	ready   chan struct{}
}

// Subscribe registers a new subscription. Updates published before this call are not
// delivered; clients render their initial state from the page template.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:     h,
		pending: NewBatch(),
		ready:   make(chan struct{}, 1),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish merges updates into every subscription. It never blocks on clients.
func (h *Hub) Publish(updates []EleUpdate) {
	if len(updates) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		sub.add(updates)
	}
}

// Run publishes everything received on source until it closes or ctx is done.
func (h *Hub) Run(ctx context.Context, source <-chan []EleUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case updates, ok := <-source:
			if !ok {
				return
			}
			h.Publish(updates)
		}
	}
}

// Push merges updates into this subscription only, e.g. the catch-up state of a newly
// connected page.
func (sub *Subscription) Push(updates []EleUpdate) {
	if len(updates) > 0 {
		sub.add(updates)
	}
}

func (sub *Subscription) add(updates []EleUpdate) {
	sub.mu.Lock()
	sub.pending.Add(updates...)
	sub.mu.Unlock()

	select {
	case sub.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when updates are pending.
func (sub *Subscription) Ready() <-chan struct{} {
	return sub.ready
}

// Take returns the pending updates, coalesced, and clears them.
func (sub *Subscription) Take() []EleUpdate {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.pending.Flush()
}

// Close unregisters the subscription. Pending updates are discarded.
func (sub *Subscription) Close() {
	sub.hub.mu.Lock()
	delete(sub.hub.subs, sub)
	sub.hub.mu.Unlock()
}
