package alerts

import (
	"os/exec"

	"github.com/NotCoffee418/water_tank_monitor/pkg/config"
)

// Capabilities is probed once at startup and never changes afterwards.
// Each channel is independent of the others.
type Capabilities struct {
	Notifications  bool `json:"notifications"`
	Audio          bool `json:"audio"`
	Vibration      bool `json:"vibration"`
	BackgroundSync bool `json:"backgroundSync"`
}

// DetectCapabilities derives capabilities from the daemon config.
// Background sync needs a reachable redis, which the caller has already checked.
func DetectCapabilities(cfg *config.TankMonitorConfig, redisReachable bool) Capabilities {
	caps := Capabilities{
		Notifications:  cfg.NotificationServiceURL != "",
		Vibration:      cfg.BuzzerDriver == BuzzerSerial || cfg.BuzzerDriver == BuzzerMQTT,
		BackgroundSync: cfg.RedisAddr != "" && redisReachable,
	}
	if cfg.SoundPlayer != "" {
		_, err := exec.LookPath(cfg.SoundPlayer)
		caps.Audio = err == nil
	}
	return caps
}
