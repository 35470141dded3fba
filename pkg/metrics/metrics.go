package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FeedReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tank_monitor_feed_reconnects_total",
		Help: "Reconnect attempts scheduled after the feed was lost",
	})
	FeedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tank_monitor_feed_messages_total",
			Help: "Feed frames by result (status, malformed, offline, timeout)",
		},
		[]string{"result"},
	)
	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tank_monitor_alerts_triggered_total",
			Help: "Alerts triggered by priority",
		},
		[]string{"priority"},
	)
	AlertChannelFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tank_monitor_alert_channel_failures_total",
			Help: "Failed alert deliveries by channel",
		},
		[]string{"channel"},
	)
	BackgroundChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tank_monitor_background_checks_total",
			Help: "Background alert checks by result (clear, alert, error)",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FeedReconnects,
			FeedMessages,
			AlertsTriggered,
			AlertChannelFailures,
			BackgroundChecks,
		)
	})
}
