package alerts

import "github.com/NotCoffee418/water_tank_monitor/pkg/types"

const MaxHistory = 50

// history keeps the most recent alerts, newest first. Not safe for concurrent use.
type history struct {
	events []types.AlertEvent
}

func (h *history) push(event types.AlertEvent) {
	h.events = append([]types.AlertEvent{event}, h.events...)
	if len(h.events) > MaxHistory {
		h.events = h.events[:MaxHistory]
	}
}

func (h *history) list() []types.AlertEvent {
	out := make([]types.AlertEvent, len(h.events))
	copy(out, h.events)
	return out
}

func (h *history) clear() {
	h.events = nil
}
