package notify

import (
	"context"
	"sync"
)

// subscriberBuffer bounds each subscriber channel. A slow consumer drops
// events rather than blocking the publisher.
const subscriberBuffer = 16

// MemoryBroker is an in-process broker for single-instance deployments
// and tests.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewMemoryBroker constructs a MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan Event]struct{})}
}

// Publish delivers the event to every current subscriber of the clique
// channel. Subscribers with a full buffer are skipped.
func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[event.CliqueID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a channel for the clique's events.
func (b *MemoryBroker) Subscribe(_ context.Context, cliqueID string) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[cliqueID] == nil {
		b.subs[cliqueID] = make(map[chan Event]struct{})
	}
	b.subs[cliqueID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[cliqueID], ch)
			if len(b.subs[cliqueID]) == 0 {
				delete(b.subs, cliqueID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
