package types

import (
	"errors"
	"fmt"
)

var ErrInvalidAlertConfig = errors.New("invalid alert config")

type AlertConfig struct {
	SoundEnabled            bool    `json:"soundEnabled"`
	VibrationEnabled        bool    `json:"vibrationEnabled"`
	NotificationEnabled     bool    `json:"notificationEnabled"`
	BackgroundCheckInterval int     `json:"backgroundCheckInterval"` // minutes
	Volume                  float64 `json:"volume"`                  // 0-1
}

func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SoundEnabled:            true,
		VibrationEnabled:        true,
		NotificationEnabled:     true,
		BackgroundCheckInterval: 1,
		Volume:                  0.8,
	}
}

func (c AlertConfig) Validate() error {
	if c.BackgroundCheckInterval < 1 {
		return fmt.Errorf("%w: backgroundCheckInterval must be at least 1 minute", ErrInvalidAlertConfig)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("%w: volume must be within [0,1]", ErrInvalidAlertConfig)
	}
	return nil
}

// AlertConfigPatch carries a partial update. Nil fields are left untouched.
type AlertConfigPatch struct {
	SoundEnabled            *bool    `json:"soundEnabled,omitempty"`
	VibrationEnabled        *bool    `json:"vibrationEnabled,omitempty"`
	NotificationEnabled     *bool    `json:"notificationEnabled,omitempty"`
	BackgroundCheckInterval *int     `json:"backgroundCheckInterval,omitempty"`
	Volume                  *float64 `json:"volume,omitempty"`
}

func (c AlertConfig) Merge(p AlertConfigPatch) AlertConfig {
	if p.SoundEnabled != nil {
		c.SoundEnabled = *p.SoundEnabled
	}
	if p.VibrationEnabled != nil {
		c.VibrationEnabled = *p.VibrationEnabled
	}
	if p.NotificationEnabled != nil {
		c.NotificationEnabled = *p.NotificationEnabled
	}
	if p.BackgroundCheckInterval != nil {
		c.BackgroundCheckInterval = *p.BackgroundCheckInterval
	}
	if p.Volume != nil {
		c.Volume = *p.Volume
	}
	return c
}
