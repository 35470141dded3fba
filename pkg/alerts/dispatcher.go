package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/metrics"
	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultAlertMessage  = "Alert triggered"
	AlertNotificationTag = "buzzer-alert"

	// Stored under tankdb.NotificationPermissionKey
	PermissionGrantedValue = "granted"
	PermissionDeniedValue  = "denied"
)

// Visibility reports whether someone is looking at the dashboard right now.
type Visibility interface {
	IsForeground() bool
}

type VisibilityFunc func() bool

func (f VisibilityFunc) IsForeground() bool { return f() }

// Channels holds the delivery channels. Nil channels are skipped.
type Channels struct {
	Sound    SoundPlayer
	Buzzer   Buzzer
	Notifier Notifier
}

// Dispatcher records alerts and delivers them over sound, vibration and
// system notifications, according to capabilities, config and permission.
type Dispatcher struct {
	caps       Capabilities
	channels   Channels
	records    RecordStore
	visibility Visibility
	bus        *Bus
	logger     *zap.Logger
	now        func() time.Time

	updateMu sync.Mutex

	mu      sync.RWMutex
	config  types.AlertConfig
	granted bool
	history history
}

func NewDispatcher(caps Capabilities, channels Channels, records RecordStore, visibility Visibility, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		caps:       caps,
		channels:   channels,
		records:    records,
		visibility: visibility,
		bus:        NewBus(),
		logger:     logger,
		now:        time.Now,
		config:     types.DefaultAlertConfig(),
	}
}

// Init restores the alert config and the remembered notification permission.
func (d *Dispatcher) Init(ctx context.Context) {
	cfg := LoadAlertConfig(ctx, d.records, d.logger)

	granted := false
	if raw, ok, err := d.records.Get(ctx, tankdb.NotificationPermissionKey); err != nil {
		d.logger.Warn("failed to read notification permission", zap.Error(err))
	} else if ok {
		granted = raw == PermissionGrantedValue
	}

	d.mu.Lock()
	d.config = cfg
	d.granted = granted && d.caps.Notifications
	d.mu.Unlock()

	if d.channels.Sound != nil {
		d.channels.Sound.SetVolume(cfg.Volume)
	}
	d.logger.Info("alert dispatcher ready",
		zap.Bool("notifications", d.caps.Notifications),
		zap.Bool("audio", d.caps.Audio),
		zap.Bool("vibration", d.caps.Vibration),
		zap.Bool("background_sync", d.caps.BackgroundSync),
		zap.Bool("permission_granted", granted),
	)
}

// TriggerAlert records the alert and attempts every enabled channel.
// Delivery failures are logged and counted, never returned.
func (d *Dispatcher) TriggerAlert(ctx context.Context, title, message string, priority types.AlertPriority) types.AlertEvent {
	if message == "" {
		message = DefaultAlertMessage
	}
	if priority == "" {
		priority = types.PriorityMedium
	}

	event := types.AlertEvent{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Timestamp: d.now(),
		Priority:  priority,
	}

	d.mu.Lock()
	d.history.push(event)
	cfg := d.config
	granted := d.granted
	d.mu.Unlock()

	metrics.AlertsTriggered.WithLabelValues(string(priority)).Inc()
	d.logger.Info("alert triggered",
		zap.String("alert_id", event.ID),
		zap.String("title", title),
		zap.String("priority", string(priority)),
	)

	// Delivery outlives the caller's request
	ctx = context.WithoutCancel(ctx)

	if d.visibility != nil && d.visibility.IsForeground() {
		if cfg.SoundEnabled && d.caps.Audio && d.channels.Sound != nil {
			d.deliver("sound", event, func() error { return d.channels.Sound.Play(ctx) })
		}
		if cfg.VibrationEnabled && d.caps.Vibration && d.channels.Buzzer != nil {
			pattern := VibrationPattern(priority)
			d.deliver("vibration", event, func() error { return d.channels.Buzzer.Vibrate(ctx, pattern) })
		}
	}

	if cfg.NotificationEnabled && granted && d.channels.Notifier != nil {
		payload := types.NotificationPayload{
			Title:              title,
			Body:               message,
			RequireInteraction: true,
			Tag:                AlertNotificationTag,
			Vibrate:            VibrationPattern(priority),
			Data: map[string]any{
				"alertId":  event.ID,
				"priority": string(priority),
			},
		}
		d.deliver("notification", event, func() error { return d.channels.Notifier.Show(ctx, payload) })
	}

	d.bus.Publish(event)
	return event
}

func (d *Dispatcher) deliver(channel string, event types.AlertEvent, fn func() error) {
	if err := fn(); err != nil {
		metrics.AlertChannelFailures.WithLabelValues(channel).Inc()
		d.logger.Warn("alert delivery failed",
			zap.String("channel", channel),
			zap.String("alert_id", event.ID),
			zap.Error(err),
		)
	}
}

// RequestPermission prompts for notification permission and remembers the
// answer. When granted, the audio output is resumed before returning.
func (d *Dispatcher) RequestPermission(ctx context.Context) (bool, error) {
	if !d.caps.Notifications || d.channels.Notifier == nil {
		return false, nil
	}

	granted, err := d.channels.Notifier.RequestPermission(ctx)
	if err != nil {
		return false, err
	}

	value := PermissionDeniedValue
	if granted {
		value = PermissionGrantedValue
	}
	if err := d.records.Put(ctx, tankdb.NotificationPermissionKey, value); err != nil {
		d.logger.Warn("failed to persist notification permission", zap.Error(err))
	}

	d.mu.Lock()
	d.granted = granted
	d.mu.Unlock()

	if granted && d.caps.Audio && d.channels.Sound != nil {
		if err := d.channels.Sound.Resume(ctx); err != nil {
			d.logger.Warn("failed to resume audio output", zap.Error(err))
		}
	}
	return granted, nil
}

// UpdateConfig merges the supplied fields into the current config and persists the result.
func (d *Dispatcher) UpdateConfig(ctx context.Context, patch types.AlertConfigPatch) (types.AlertConfig, error) {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	merged := d.Config().Merge(patch)
	if err := merged.Validate(); err != nil {
		return types.AlertConfig{}, err
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return types.AlertConfig{}, fmt.Errorf("encode alert config: %w", err)
	}
	if err := d.records.Put(ctx, tankdb.AlertConfigKey, string(raw)); err != nil {
		return types.AlertConfig{}, fmt.Errorf("persist alert config: %w", err)
	}

	d.mu.Lock()
	d.config = merged
	d.mu.Unlock()

	if d.channels.Sound != nil {
		d.channels.Sound.SetVolume(merged.Volume)
	}
	return merged, nil
}

func (d *Dispatcher) Config() types.AlertConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// History returns recent alerts, newest first.
func (d *Dispatcher) History() []types.AlertEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.list()
}

func (d *Dispatcher) ClearAlerts() {
	d.mu.Lock()
	d.history.clear()
	d.mu.Unlock()
}

func (d *Dispatcher) PermissionGranted() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.granted
}

func (d *Dispatcher) Capabilities() Capabilities {
	return d.caps
}

func (d *Dispatcher) Subscribe() chan types.AlertEvent {
	return d.bus.Subscribe()
}

func (d *Dispatcher) Unsubscribe(ch chan types.AlertEvent) {
	d.bus.Unsubscribe(ch)
}
