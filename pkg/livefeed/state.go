package livefeed

import (
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
)

type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Live
	Reconnecting
	Errored
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	case Reconnecting:
		return "reconnecting"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// State is the connector's view of the feed. LastStatus points at an
// immutable snapshot, so copies of State are safe to hand out.
type State struct {
	Phase      Phase
	LastStatus *types.TankStatus
	LastError  error
	LastSeenAt time.Time
}

// View is what the dashboard renders.
type View struct {
	Percentage   float64 `json:"percentage"`
	Volume       float64 `json:"volume"`
	Distance     float64 `json:"distance"`
	Alive        bool    `json:"alive"`
	LastSeen     int64   `json:"lastSeen,omitempty"`
	Error        string  `json:"error,omitempty"`
	Reconnecting bool    `json:"reconnecting"`
	Phase        string  `json:"phase"`
}

func (s State) View() View {
	v := View{
		Phase:        s.Phase.String(),
		Reconnecting: s.Phase == Reconnecting,
	}
	if s.LastStatus != nil {
		v.Percentage = s.LastStatus.Percentage
		v.Volume = s.LastStatus.Volume
		v.Distance = s.LastStatus.Distance
		v.Alive = s.LastStatus.Alive
		v.LastSeen = s.LastStatus.LastSeen
	}
	if s.LastError != nil {
		v.Error = s.LastError.Error()
	}
	return v
}
