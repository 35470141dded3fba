// Tank dashboard keeps the live connection to the tank sensor, delivers alerts
// and serves the local dashboard API and websocket.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/alerts"
	"github.com/NotCoffee418/water_tank_monitor/pkg/bgcheck"
	"github.com/NotCoffee418/water_tank_monitor/pkg/config"
	"github.com/NotCoffee418/water_tank_monitor/pkg/dashboard"
	"github.com/NotCoffee418/water_tank_monitor/pkg/livefeed"
	"github.com/NotCoffee418/water_tank_monitor/pkg/logging"
	"github.com/NotCoffee418/water_tank_monitor/pkg/metrics"
	"github.com/NotCoffee418/water_tank_monitor/pkg/pathing"
	"github.com/NotCoffee418/water_tank_monitor/pkg/session"
	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load tank monitor config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "tank_dashboard")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := tankdb.Open(pathing.GetRecordDbPath())
	if err != nil {
		logger.Fatal("failed to open record database", zap.Error(err))
	}
	defer records.Close()

	rdb, redisReachable := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	caps := alerts.DetectCapabilities(cfg, redisReachable)

	hub := dashboard.NewHub(logger.Named("hub"))

	dispatcher := alerts.NewDispatcher(caps, buildChannels(cfg, caps, logger), records, hub, logger.Named("alerts"))
	dispatcher.Init(ctx)

	transport, err := livefeed.TransportFor(cfg.FeedBaseURL, time.Duration(cfg.FeedIdleTimeoutSec)*time.Second)
	if err != nil {
		logger.Fatal("unusable feed base url", zap.String("feed_base_url", cfg.FeedBaseURL), zap.Error(err))
	}
	connector := livefeed.NewConnector(transport, cfg.FeedBaseURL, cfg.FeedPath, logger.Named("livefeed"),
		livefeed.WithReconnectDelay(time.Duration(cfg.ReconnectDelayMs)*time.Millisecond),
	)

	var registrar bgcheck.Registrar
	if caps.BackgroundSync {
		registrar = bgcheck.NewRedisRegistry(rdb, "")
	}
	checker := bgcheck.NewChecker(
		bgcheck.NewHTTPQuerier(cfg.AlertCheckURL),
		bgcheck.NewInPageSink(dispatcher),
		registrar,
		logger.Named("bgcheck"),
	)

	store := session.NewStore(records, logger.Named("session"))
	store.OnChange(connector.HandleSessionChange)
	store.OnChange(func(sc *types.SessionConfig) {
		if sc == nil {
			checker.Stop(ctx)
			return
		}
		checker.Start(ctx, dashboard.CheckInterval(dispatcher.Config()))
	})

	// Push state changes to dashboard clients
	connector.OnChange(func(state livefeed.State) {
		hub.Broadcast(dashboard.MessageStatus, dashboard.NewStatusResponse(state, store.Config()))
	})
	alertEvents := dispatcher.Subscribe()
	go func() {
		for event := range alertEvents {
			hub.Broadcast(dashboard.MessageAlert, event)
		}
	}()
	if redisReachable {
		messenger := bgcheck.NewMessenger(rdb, "", logger.Named("messenger"))
		err := messenger.Listen(ctx, func(msg bgcheck.PageMessage) {
			logger.Info("background alert posted by worker", zap.String("message", msg.Data.Message))
			hub.Broadcast(dashboard.MessageBackgroundAlert, msg.Data)
		})
		if err != nil {
			logger.Warn("not listening for worker messages", zap.Error(err))
		}
	}

	go connector.Run(ctx)
	store.Restore(ctx)

	server := dashboard.New(cfg.ListenAddr(), dashboard.Deps{
		Session: store,
		Feed:    connector,
		Alerts:  dispatcher,
		Checker: checker,
		Hub:     hub,
		Logger:  logger.Named("dashboard"),
	})
	if err := server.Run(ctx); err != nil {
		logger.Fatal("dashboard server failed", zap.Error(err))
	}

	// Leave the periodic registration in place so the worker keeps checking
	logger.Info("tank dashboard stopped")
}

func connectRedis(ctx context.Context, cfg *config.TankMonitorConfig, logger *zap.Logger) (*redis.Client, bool) {
	if cfg.RedisAddr == "" {
		return nil, false
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, background sync disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return rdb, false
	}
	return rdb, true
}

func buildChannels(cfg *config.TankMonitorConfig, caps alerts.Capabilities, logger *zap.Logger) alerts.Channels {
	var channels alerts.Channels

	if caps.Audio {
		channels.Sound = alerts.NewCommandPlayer(cfg.SoundPlayer, cfg.SoundFile, logger.Named("sound"))
	}
	if caps.Notifications {
		channels.Notifier = alerts.NewWebhookNotifier(cfg.NotificationServiceURL, cfg.NotificationIcon, cfg.NotificationBadge, logger.Named("notifier"))
	}

	switch cfg.BuzzerDriver {
	case alerts.BuzzerSerial:
		channels.Buzzer = alerts.NewSerialBuzzer(cfg.BuzzerSerialDevice, cfg.BuzzerBaudrate, logger.Named("buzzer"))
	case alerts.BuzzerMQTT:
		hostname, _ := os.Hostname()
		buzzer, err := alerts.NewMQTTBuzzer(cfg.BuzzerMQTTBroker, cfg.BuzzerMQTTTopic, "tank-dashboard-"+hostname)
		if err != nil {
			logger.Warn("mqtt buzzer unavailable", zap.Error(err))
			break
		}
		channels.Buzzer = buzzer
	}
	return channels
}
