package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"go.uber.org/zap"
)

var ErrInvalidConfig = types.ErrInvalidSessionConfig

type RecordStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ChangeFunc receives the new session config, or nil after logout.
type ChangeFunc func(cfg *types.SessionConfig)

// Store holds the single session of the dashboard process.
type Store struct {
	records RecordStore
	logger  *zap.Logger

	mu        sync.RWMutex
	config    *types.SessionConfig
	listeners []ChangeFunc
}

func NewStore(records RecordStore, logger *zap.Logger) *Store {
	return &Store{
		records: records,
		logger:  logger,
	}
}

// OnChange registers fn to run after every login, logout and successful restore.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) Login(ctx context.Context, cfg types.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode session config: %w", err)
	}
	if err := s.records.Put(ctx, tankdb.SessionConfigKey, string(raw)); err != nil {
		return fmt.Errorf("persist session config: %w", err)
	}

	s.logger.Info("session logged in",
		zap.String("display_name", cfg.DisplayName),
		zap.Float64("tank_height_cm", cfg.TankHeight),
		zap.Float64("tank_volume_l", cfg.TankVolume),
	)
	s.set(&cfg)
	return nil
}

// Logout clears the persisted session. The in-memory session is dropped even if the delete fails.
func (s *Store) Logout(ctx context.Context) error {
	err := s.records.Delete(ctx, tankdb.SessionConfigKey)
	if err != nil {
		s.logger.Error("failed to delete session record", zap.Error(err))
		err = fmt.Errorf("delete session config: %w", err)
	}
	s.logger.Info("session logged out")
	s.set(nil)
	return err
}

// Restore loads a previously persisted session. A record that cannot be
// decoded or fails validation is discarded and the session stays logged out.
func (s *Store) Restore(ctx context.Context) {
	raw, ok, err := s.records.Get(ctx, tankdb.SessionConfigKey)
	if err != nil {
		s.logger.Warn("failed to read session record", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var cfg types.SessionConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		s.discard(ctx, err)
		return
	}
	if err := cfg.Validate(); err != nil {
		s.discard(ctx, err)
		return
	}

	s.logger.Info("session restored", zap.String("display_name", cfg.DisplayName))
	s.set(&cfg)
}

func (s *Store) discard(ctx context.Context, reason error) {
	s.logger.Warn("discarding malformed session record", zap.Error(reason))
	if err := s.records.Delete(ctx, tankdb.SessionConfigKey); err != nil {
		s.logger.Warn("failed to delete malformed session record", zap.Error(err))
	}
}

// Config returns a copy of the active session config, or nil when logged out.
func (s *Store) Config() *types.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil
	}
	cfg := *s.config
	return &cfg
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config != nil && s.config.Credential != ""
}

func (s *Store) set(cfg *types.SessionConfig) {
	s.mu.Lock()
	s.config = cfg
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		if cfg == nil {
			fn(nil)
			continue
		}
		c := *cfg
		fn(&c)
	}
}
