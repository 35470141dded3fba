package alerts

import (
	"context"

	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
)

const (
	BuzzerSerial = "serial"
	BuzzerMQTT   = "mqtt"
)

// Buzzer drives the haptic channel. Pattern alternates on and off durations in ms.
type Buzzer interface {
	Vibrate(ctx context.Context, pattern []int) error
	Close() error
}

func VibrationPattern(priority types.AlertPriority) []int {
	switch priority {
	case types.PriorityHigh:
		return []int{200, 100, 200, 100, 200}
	case types.PriorityMedium:
		return []int{200, 100, 200}
	default:
		return []int{200}
	}
}
