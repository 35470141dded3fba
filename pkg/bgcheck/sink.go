package bgcheck

import (
	"context"
	"fmt"

	"github.com/NotCoffee418/water_tank_monitor/pkg/alerts"
	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"go.uber.org/zap"
)

const (
	BackgroundAlertTitle = "Background Alert"
	BackgroundAlertBody  = "New alert detected"
	BackgroundAlertTag   = "background-alert"
)

// AlertSink receives positive check results. Which sink is used depends on
// whether the dashboard process or the standalone worker ran the check.
type AlertSink interface {
	Deliver(ctx context.Context, result CheckResult) error
}

type Trigger interface {
	TriggerAlert(ctx context.Context, title, message string, priority types.AlertPriority) types.AlertEvent
}

// InPageSink routes alerts through the dashboard's dispatcher.
type InPageSink struct {
	dispatcher Trigger
}

func NewInPageSink(dispatcher Trigger) *InPageSink {
	return &InPageSink{dispatcher: dispatcher}
}

func (s *InPageSink) Deliver(ctx context.Context, result CheckResult) error {
	s.dispatcher.TriggerAlert(ctx, BackgroundAlertTitle, result.Message, types.PriorityMedium)
	return nil
}

// BackgroundSink shows the notification itself and tells any running
// dashboards about it. It never reaches a dispatcher directly.
type BackgroundSink struct {
	notifier  alerts.Notifier
	messenger Publisher
	logger    *zap.Logger
}

func NewBackgroundSink(notifier alerts.Notifier, messenger Publisher, logger *zap.Logger) *BackgroundSink {
	return &BackgroundSink{notifier: notifier, messenger: messenger, logger: logger}
}

func (s *BackgroundSink) Deliver(ctx context.Context, result CheckResult) error {
	body := result.Message
	if body == "" {
		body = BackgroundAlertBody
	}

	var showErr error
	if s.notifier != nil {
		showErr = s.notifier.Show(ctx, types.NotificationPayload{
			Title:              BackgroundAlertTitle,
			Body:               body,
			RequireInteraction: true,
			Tag:                BackgroundAlertTag,
			Vibrate:            alerts.VibrationPattern(types.PriorityMedium),
		})
		if showErr != nil {
			showErr = fmt.Errorf("show background notification: %w", showErr)
		}
	}

	// Fire and forget: nobody may be listening
	if s.messenger != nil {
		msg := PageMessage{Type: MessageBackgroundAlert, Data: result}
		if err := s.messenger.Publish(ctx, msg); err != nil {
			s.logger.Warn("failed to post background alert to dashboards", zap.Error(err))
		}
	}
	return showErr
}

// GatedNotifier shows notifications only while the stored permission is granted.
// The dashboard records the answer; the worker reads it on every alert.
type GatedNotifier struct {
	alerts.Notifier
	records alerts.RecordStore
}

func NewGatedNotifier(notifier alerts.Notifier, records alerts.RecordStore) *GatedNotifier {
	return &GatedNotifier{Notifier: notifier, records: records}
}

func (g *GatedNotifier) Show(ctx context.Context, payload types.NotificationPayload) error {
	raw, ok, err := g.records.Get(ctx, tankdb.NotificationPermissionKey)
	if err != nil {
		return fmt.Errorf("read notification permission: %w", err)
	}
	if !ok || raw != alerts.PermissionGrantedValue {
		return nil
	}
	return g.Notifier.Show(ctx, payload)
}
