package alerts

import (
	"sync"

	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
)

// Bus fans triggered alerts out to in-process listeners. Slow listeners miss events.
type Bus struct {
	mu      sync.Mutex
	clients map[chan types.AlertEvent]struct{}
}

func NewBus() *Bus {
	return &Bus{clients: make(map[chan types.AlertEvent]struct{})}
}

func (b *Bus) Subscribe() chan types.AlertEvent {
	ch := make(chan types.AlertEvent, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan types.AlertEvent) {
	if ch == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
}

func (b *Bus) Publish(event types.AlertEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- event:
		default:
		}
	}
}
