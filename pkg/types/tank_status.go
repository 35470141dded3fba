package types

import "time"

// TankStatus is one snapshot of the sensor as reported by the feed.
// Never mutated after creation; a newer message replaces it whole.
type TankStatus struct {
	Percentage float64 `json:"percentage"`
	Volume     float64 `json:"volume"`   // liters
	Distance   float64 `json:"distance"` // raw sensor reading, cm
	Alive      bool    `json:"alive"`
	LastSeen   int64   `json:"lastSeen"` // epoch millis, as sent by the feed
}

func (s TankStatus) LastSeenTime() time.Time {
	if s.LastSeen == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LastSeen)
}

// WithAlive returns a copy with the liveness flag replaced.
func (s TankStatus) WithAlive(alive bool) TankStatus {
	s.Alive = alive
	return s
}
