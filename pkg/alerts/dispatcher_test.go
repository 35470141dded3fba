package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSound struct {
	mu      sync.Mutex
	plays   int
	resumes int
	volume  float64
	err     error
}

func (s *fakeSound) Play(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	return s.err
}

func (s *fakeSound) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes++
	return nil
}

func (s *fakeSound) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

type fakeBuzzer struct {
	patterns [][]int
	err      error
}

func (b *fakeBuzzer) Vibrate(_ context.Context, pattern []int) error {
	b.patterns = append(b.patterns, pattern)
	return b.err
}

func (b *fakeBuzzer) Close() error { return nil }

type fakeNotifier struct {
	grant    bool
	askErr   error
	showErr  error
	asked    int
	payloads []types.NotificationPayload
}

func (n *fakeNotifier) RequestPermission(context.Context) (bool, error) {
	n.asked++
	return n.grant, n.askErr
}

func (n *fakeNotifier) Show(_ context.Context, p types.NotificationPayload) error {
	n.payloads = append(n.payloads, p)
	return n.showErr
}

var allCaps = Capabilities{Notifications: true, Audio: true, Vibration: true, BackgroundSync: true}

type dispatcherFixture struct {
	d        *Dispatcher
	records  *tankdb.Memory
	sound    *fakeSound
	buzzer   *fakeBuzzer
	notifier *fakeNotifier
	visible  bool
}

func newFixture(t *testing.T, caps Capabilities) *dispatcherFixture {
	t.Helper()
	f := &dispatcherFixture{
		records:  tankdb.NewMemory(),
		sound:    &fakeSound{},
		buzzer:   &fakeBuzzer{},
		notifier: &fakeNotifier{grant: true},
		visible:  true,
	}
	f.d = NewDispatcher(caps,
		Channels{Sound: f.sound, Buzzer: f.buzzer, Notifier: f.notifier},
		f.records,
		VisibilityFunc(func() bool { return f.visible }),
		zap.NewNop(),
	)
	f.d.Init(context.Background())
	return f
}

func TestTriggerAlert_DeliversOnAllChannels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, allCaps)
	_, err := f.d.RequestPermission(ctx)
	require.NoError(t, err)

	event := f.d.TriggerAlert(ctx, "Tank low", "Below 10%", types.PriorityHigh)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 1, f.sound.plays)
	require.Len(t, f.buzzer.patterns, 1)
	assert.Equal(t, []int{200, 100, 200, 100, 200}, f.buzzer.patterns[0])

	require.Len(t, f.notifier.payloads, 1)
	p := f.notifier.payloads[0]
	assert.Equal(t, "Tank low", p.Title)
	assert.Equal(t, "Below 10%", p.Body)
	assert.Equal(t, AlertNotificationTag, p.Tag)
	assert.True(t, p.RequireInteraction)

	history := f.d.History()
	require.Len(t, history, 1)
	assert.Equal(t, event, history[0])
}

func TestTriggerAlert_Defaults(t *testing.T) {
	f := newFixture(t, allCaps)
	event := f.d.TriggerAlert(context.Background(), "Ping", "", "")
	assert.Equal(t, DefaultAlertMessage, event.Message)
	assert.Equal(t, types.PriorityMedium, event.Priority)
	assert.Equal(t, [][]int{{200, 100, 200}}, f.buzzer.patterns)
}

func TestTriggerAlert_ChannelFailuresStillRecordOnce(t *testing.T) {
	f := newFixture(t, allCaps)
	f.d.granted = true
	f.sound.err = errors.New("no audio device")
	f.buzzer.err = errors.New("port gone")
	f.notifier.showErr = errors.New("push service down")

	f.d.TriggerAlert(context.Background(), "Tank low", "msg", types.PriorityLow)

	require.Len(t, f.d.History(), 1)
	assert.Equal(t, 1, f.sound.plays)
	assert.Len(t, f.buzzer.patterns, 1)
	assert.Len(t, f.notifier.payloads, 1)
}

func TestTriggerAlert_HistoryCappedNewestFirst(t *testing.T) {
	f := newFixture(t, Capabilities{})
	for i := 0; i < MaxHistory+7; i++ {
		f.d.TriggerAlert(context.Background(), fmt.Sprintf("alert %d", i), "", types.PriorityLow)
	}

	history := f.d.History()
	require.Len(t, history, MaxHistory)
	assert.Equal(t, fmt.Sprintf("alert %d", MaxHistory+6), history[0].Title)
	assert.Equal(t, "alert 7", history[MaxHistory-1].Title)

	f.d.ClearAlerts()
	assert.Empty(t, f.d.History())
}

func TestTriggerAlert_BackgroundSkipsSoundAndVibration(t *testing.T) {
	f := newFixture(t, allCaps)
	f.visible = false
	_, err := f.d.RequestPermission(context.Background())
	require.NoError(t, err)

	f.d.TriggerAlert(context.Background(), "t", "m", types.PriorityMedium)

	assert.Zero(t, f.sound.plays)
	assert.Empty(t, f.buzzer.patterns)
	assert.Len(t, f.notifier.payloads, 1)
}

func TestTriggerAlert_RespectsCapabilitiesAndConfig(t *testing.T) {
	f := newFixture(t, Capabilities{Notifications: true, Vibration: true})
	f.d.granted = true
	_, err := f.d.UpdateConfig(context.Background(), types.AlertConfigPatch{VibrationEnabled: ptr(false)})
	require.NoError(t, err)

	f.d.TriggerAlert(context.Background(), "t", "m", types.PriorityMedium)

	assert.Zero(t, f.sound.plays, "audio unsupported")
	assert.Empty(t, f.buzzer.patterns, "vibration disabled")
	assert.Len(t, f.notifier.payloads, 1)
}

func TestRequestPermission_DeniedStopsNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, allCaps)
	f.notifier.grant = false

	granted, err := f.d.RequestPermission(ctx)
	require.NoError(t, err)
	require.False(t, granted)
	require.False(t, f.d.PermissionGranted())
	assert.Zero(t, f.sound.resumes)

	raw, ok, _ := f.records.Get(ctx, tankdb.NotificationPermissionKey)
	require.True(t, ok)
	assert.Equal(t, "denied", raw)

	f.d.TriggerAlert(ctx, "a", "b", types.PriorityMedium)
	f.d.TriggerAlert(ctx, "c", "d", types.PriorityHigh)

	assert.Len(t, f.d.History(), 2)
	assert.Equal(t, 2, f.sound.plays)
	assert.Len(t, f.buzzer.patterns, 2)
	assert.Empty(t, f.notifier.payloads)
}

func TestRequestPermission_GrantedResumesAudioAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, allCaps)

	granted, err := f.d.RequestPermission(ctx)
	require.NoError(t, err)
	require.True(t, granted)
	assert.Equal(t, 1, f.sound.resumes)

	// A new dispatcher over the same records remembers the answer
	restored := NewDispatcher(allCaps, Channels{Notifier: f.notifier}, f.records, nil, zap.NewNop())
	restored.Init(ctx)
	assert.True(t, restored.PermissionGranted())
}

func TestRequestPermission_ErrorLeavesStateAlone(t *testing.T) {
	f := newFixture(t, allCaps)
	f.notifier.askErr = errors.New("unreachable")

	_, err := f.d.RequestPermission(context.Background())
	require.Error(t, err)
	assert.False(t, f.d.PermissionGranted())
	_, ok, _ := f.records.Get(context.Background(), tankdb.NotificationPermissionKey)
	assert.False(t, ok)
}

func TestRequestPermission_WithoutNotificationSupport(t *testing.T) {
	f := newFixture(t, Capabilities{Audio: true})
	granted, err := f.d.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Zero(t, f.notifier.asked)
}

func TestUpdateConfig_MergesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, allCaps)
	_, err := f.d.UpdateConfig(ctx, types.AlertConfigPatch{SoundEnabled: ptr(false)})
	require.NoError(t, err)

	updated, err := f.d.UpdateConfig(ctx, types.AlertConfigPatch{Volume: ptr(0.3)})
	require.NoError(t, err)
	assert.Equal(t, 0.3, f.sound.volume)

	reloaded := LoadAlertConfig(ctx, f.records, zap.NewNop())
	assert.Equal(t, updated, reloaded)
	assert.Equal(t, 0.3, reloaded.Volume)
	assert.False(t, reloaded.SoundEnabled)
	assert.True(t, reloaded.VibrationEnabled)
	assert.True(t, reloaded.NotificationEnabled)
	assert.Equal(t, 1, reloaded.BackgroundCheckInterval)
}

func TestUpdateConfig_RejectsInvalid(t *testing.T) {
	f := newFixture(t, allCaps)
	_, err := f.d.UpdateConfig(context.Background(), types.AlertConfigPatch{Volume: ptr(1.5)})
	require.ErrorIs(t, err, types.ErrInvalidAlertConfig)
	assert.Equal(t, types.DefaultAlertConfig(), f.d.Config())
}

func TestLoadAlertConfig_FallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	cases := map[string]types.AlertConfig{
		`{"volume":0.5}`:                func() types.AlertConfig { c := types.DefaultAlertConfig(); c.Volume = 0.5; return c }(),
		`garbage`:                       types.DefaultAlertConfig(),
		`{"backgroundCheckInterval":0}`: types.DefaultAlertConfig(),
		`{"soundEnabled":false,"volume":1}`: func() types.AlertConfig {
			c := types.DefaultAlertConfig()
			c.SoundEnabled = false
			c.Volume = 1
			return c
		}(),
	}
	for raw, want := range cases {
		records := tankdb.NewMemory()
		require.NoError(t, records.Put(ctx, tankdb.AlertConfigKey, raw))
		assert.Equal(t, want, LoadAlertConfig(ctx, records, zap.NewNop()), raw)
	}
}

func TestDispatcher_PublishesToSubscribers(t *testing.T) {
	f := newFixture(t, Capabilities{})
	ch := f.d.Subscribe()
	defer f.d.Unsubscribe(ch)

	event := f.d.TriggerAlert(context.Background(), "t", "m", types.PriorityLow)
	got := <-ch
	assert.Equal(t, event.ID, got.ID)
}

func ptr[T any](v T) *T { return &v }
