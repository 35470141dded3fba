package alerts

import (
	"context"
	"encoding/json"

	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"go.uber.org/zap"
)

type RecordStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// LoadAlertConfig reads the persisted alert config. Missing keys keep their
// defaults; an unreadable or invalid record yields the defaults.
func LoadAlertConfig(ctx context.Context, records RecordStore, logger *zap.Logger) types.AlertConfig {
	cfg := types.DefaultAlertConfig()

	raw, ok, err := records.Get(ctx, tankdb.AlertConfigKey)
	if err != nil {
		logger.Warn("failed to read alert config, using defaults", zap.Error(err))
		return cfg
	}
	if !ok {
		return cfg
	}

	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Warn("ignoring malformed alert config", zap.Error(err))
		return types.DefaultAlertConfig()
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("ignoring invalid alert config", zap.Error(err))
		return types.DefaultAlertConfig()
	}
	return cfg
}
