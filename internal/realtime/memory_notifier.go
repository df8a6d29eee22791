package realtime

import (
	"context"
	"sync"
)

// MemoryNotifier is an in-process Notifier for tests and single-replica
// development runs.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: map[int]chan Event{}}
}

func (n *MemoryNotifier) Publish(ctx context.Context, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block a state change.
		}
	}
}

func (n *MemoryNotifier) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan Event, 16)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}
