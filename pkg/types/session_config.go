package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidSessionConfig = errors.New("invalid session config")

// SessionConfig is what the user submits on login: the feed credential and the tank geometry.
type SessionConfig struct {
	Credential  string  `json:"credential"`
	TankHeight  float64 `json:"tankHeight"` // cm
	TankVolume  float64 `json:"tankVolume"` // liters
	FullGap     float64 `json:"fullGap"`    // cm between sensor and water surface when full
	DisplayName string  `json:"displayName,omitempty"`
}

func (c SessionConfig) Validate() error {
	if strings.TrimSpace(c.Credential) == "" {
		return fmt.Errorf("%w: credential is required", ErrInvalidSessionConfig)
	}
	if !isFinite(c.TankHeight) || c.TankHeight <= 0 {
		return fmt.Errorf("%w: tankHeight must be positive", ErrInvalidSessionConfig)
	}
	if !isFinite(c.TankVolume) || c.TankVolume <= 0 {
		return fmt.Errorf("%w: tankVolume must be positive", ErrInvalidSessionConfig)
	}
	if !isFinite(c.FullGap) || c.FullGap < 0 {
		return fmt.Errorf("%w: fullGap must not be negative", ErrInvalidSessionConfig)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
