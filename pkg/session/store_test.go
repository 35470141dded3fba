package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStore_LoginPersistsAndAuthenticates(t *testing.T) {
	ctx := context.Background()
	records := tankdb.NewMemory()
	store := NewStore(records, zap.NewNop())

	var notified []*types.SessionConfig
	store.OnChange(func(cfg *types.SessionConfig) { notified = append(notified, cfg) })

	cfg := types.SessionConfig{Credential: "k1", TankHeight: 120, TankVolume: 1000, FullGap: 10}
	require.NoError(t, store.Login(ctx, cfg))

	require.True(t, store.IsAuthenticated())
	require.Equal(t, &cfg, store.Config())

	raw, ok, err := records.Get(ctx, tankdb.SessionConfigKey)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted types.SessionConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Equal(t, cfg, persisted)

	require.Len(t, notified, 1)
	require.Equal(t, cfg, *notified[0])
}

func TestStore_LoginRejectsMissingFields(t *testing.T) {
	ctx := context.Background()
	records := tankdb.NewMemory()
	store := NewStore(records, zap.NewNop())

	cases := map[string]types.SessionConfig{
		"missing credential": {TankHeight: 120, TankVolume: 1000},
		"missing height":     {Credential: "k1", TankVolume: 1000},
		"missing volume":     {Credential: "k1", TankHeight: 120},
		"negative gap":       {Credential: "k1", TankHeight: 120, TankVolume: 1000, FullGap: -1},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			err := store.Login(ctx, cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.False(t, store.IsAuthenticated())
			_, ok, _ := records.Get(ctx, tankdb.SessionConfigKey)
			require.False(t, ok)
		})
	}
}

func TestStore_LogoutClearsRecordAndNotifiesNil(t *testing.T) {
	ctx := context.Background()
	records := tankdb.NewMemory()
	store := NewStore(records, zap.NewNop())
	require.NoError(t, store.Login(ctx, types.SessionConfig{Credential: "k1", TankHeight: 120, TankVolume: 1000}))

	var last *types.SessionConfig
	called := false
	store.OnChange(func(cfg *types.SessionConfig) {
		called = true
		last = cfg
	})

	require.NoError(t, store.Logout(ctx))
	require.True(t, called)
	require.Nil(t, last)
	require.False(t, store.IsAuthenticated())
	require.Nil(t, store.Config())

	_, ok, _ := records.Get(ctx, tankdb.SessionConfigKey)
	require.False(t, ok)
}

func TestStore_RestoreValidRecord(t *testing.T) {
	ctx := context.Background()
	records := tankdb.NewMemory()
	require.NoError(t, records.Put(ctx, tankdb.SessionConfigKey,
		`{"credential":"k1","tankHeight":120,"tankVolume":1000,"fullGap":10,"displayName":"roof"}`))

	store := NewStore(records, zap.NewNop())
	store.Restore(ctx)

	require.True(t, store.IsAuthenticated())
	cfg := store.Config()
	require.NotNil(t, cfg)
	assert.Equal(t, "roof", cfg.DisplayName)
	assert.Equal(t, 10.0, cfg.FullGap)
}

func TestStore_RestoreDiscardsMalformedRecords(t *testing.T) {
	malformed := []string{
		"",
		"{",
		"not json",
		"[]",
		`{"credential": 12}`,
		`{"credential":"","tankHeight":120,"tankVolume":1000}`,
		`{"credential":"k1","tankHeight":0,"tankVolume":1000}`,
		`null`,
	}

	for _, raw := range malformed {
		t.Run(raw, func(t *testing.T) {
			ctx := context.Background()
			records := tankdb.NewMemory()
			require.NoError(t, records.Put(ctx, tankdb.SessionConfigKey, raw))

			store := NewStore(records, zap.NewNop())
			require.NotPanics(t, func() { store.Restore(ctx) })
			require.False(t, store.IsAuthenticated())

			_, ok, _ := records.Get(ctx, tankdb.SessionConfigKey)
			require.False(t, ok, "malformed record should be removed")
		})
	}
}

func TestStore_RestoreWithoutRecord(t *testing.T) {
	store := NewStore(tankdb.NewMemory(), zap.NewNop())
	store.Restore(context.Background())
	require.False(t, store.IsAuthenticated())
}
