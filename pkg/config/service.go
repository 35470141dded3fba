package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/water_tank_monitor/pkg/pathing"
	"github.com/joho/godotenv"
)

var ActiveTankMonitorConfig *TankMonitorConfig

func Default() *TankMonitorConfig {
	return &TankMonitorConfig{
		FeedBaseURL:            "http://localhost:8000",
		FeedPath:               "/events",
		ReconnectDelayMs:       3000,
		FeedIdleTimeoutSec:     60,
		AlertCheckURL:          "http://localhost:8000/api/check-alerts",
		NotificationServiceURL: "",
		NotificationIcon:       "/icons/icon-192.png",
		NotificationBadge:      "/icons/badge.png",
		SoundPlayer:            "paplay",
		SoundFile:              "/usr/share/water_tank_monitor/buzzer.wav",
		BuzzerDriver:           "",
		BuzzerSerialDevice:     "/dev/ttyUSB0",
		BuzzerBaudrate:         9600,
		BuzzerMQTTBroker:       "tcp://localhost:1883",
		BuzzerMQTTTopic:        "tank/buzzer",
		RedisAddr:              "localhost:6379",
		ListenAddress:          "0.0.0.0",
		ListenPort:             9040,
		LogLevel:               "info",
		LogFormat:              "json",
	}
}

// Load reads the daemon config from the config dir and applies env overrides.
func Load() (*TankMonitorConfig, error) {
	_ = godotenv.Load() // .env is optional

	cfg, err := LoadFrom(pathing.GetConfigPath())
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	ActiveTankMonitorConfig = cfg
	return cfg, nil
}

// LoadFrom reads the config at path, writing the defaults there first if the file does not exist.
func LoadFrom(configPath string) (*TankMonitorConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := Default()
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return nil, err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	// Missing keys keep their defaults
	cfg := Default()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *TankMonitorConfig) error {
	if v := os.Getenv("TANK_MONITOR_FEED_URL"); v != "" {
		cfg.FeedBaseURL = v
	}
	if v := os.Getenv("TANK_MONITOR_ALERT_CHECK_URL"); v != "" {
		cfg.AlertCheckURL = v
	}
	if v := os.Getenv("TANK_MONITOR_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("TANK_MONITOR_LISTEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid TANK_MONITOR_LISTEN_PORT: %s", v)
		}
		cfg.ListenPort = port
	}
	if v := os.Getenv("TANK_MONITOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func (c *TankMonitorConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}
