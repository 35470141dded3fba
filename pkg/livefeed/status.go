package livefeed

import (
	"encoding/json"
	"fmt"

	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
)

type statusMessage struct {
	Percentage *float64 `json:"percentage"`
	Volume     *float64 `json:"volume"`
	Distance   *float64 `json:"distance"`
	Alive      *bool    `json:"alive"`
	LastSeen   *float64 `json:"lastSeen"`
}

// ParseStatus decodes one status message. Any problem rejects the whole
// message; a TankStatus is never built from a partially valid payload.
func ParseStatus(data []byte) (types.TankStatus, error) {
	var msg statusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return types.TankStatus{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Percentage == nil || msg.Volume == nil || msg.Alive == nil {
		return types.TankStatus{}, fmt.Errorf("%w: percentage, volume and alive are required", ErrMalformed)
	}

	status := types.TankStatus{
		Percentage: *msg.Percentage,
		Volume:     *msg.Volume,
		Alive:      *msg.Alive,
	}
	if msg.Distance != nil {
		status.Distance = *msg.Distance
	}
	if msg.LastSeen != nil {
		status.LastSeen = int64(*msg.LastSeen)
	}

	if status.Percentage < 0 || status.Percentage > 100 {
		return types.TankStatus{}, fmt.Errorf("%w: percentage %v out of range", ErrMalformed, status.Percentage)
	}
	if status.Volume < 0 || status.Distance < 0 {
		return types.TankStatus{}, fmt.Errorf("%w: negative volume or distance", ErrMalformed)
	}
	return status, nil
}
