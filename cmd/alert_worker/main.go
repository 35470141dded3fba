// Alert worker runs the registered periodic alert checks while no dashboard is open.
// Depends on redis being reachable.
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
	"github.com/NotCoffee418/water_tank_monitor/pkg/logging"
	"github.com/NotCoffee418/water_tank_monitor/pkg/pathing"
	"github.com/NotCoffee418/water_tank_monitor/pkg/tankdb"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load tank monitor config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "alert_worker")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		logger.Fatal("redis_addr is required for the alert worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		logger.Fatal("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Shares the dashboard's records to honour its notification permission
	records, err := tankdb.Open(pathing.GetRecordDbPath())
	if err != nil {
		logger.Fatal("failed to open record database", zap.Error(err))
	}
	defer records.Close()

	var notifier alerts.Notifier
	if cfg.NotificationServiceURL != "" {
		webhook := alerts.NewWebhookNotifier(cfg.NotificationServiceURL, cfg.NotificationIcon, cfg.NotificationBadge, logger.Named("notifier"))
		notifier = bgcheck.NewGatedNotifier(webhook, records)
	}

	sink := bgcheck.NewBackgroundSink(notifier, bgcheck.NewMessenger(rdb, "", logger.Named("messenger")), logger.Named("sink"))
	worker := bgcheck.NewWorker(
		bgcheck.NewRedisRegistry(rdb, ""),
		bgcheck.NewHTTPQuerier(cfg.AlertCheckURL),
		sink,
		bgcheck.DefaultScanInterval,
		logger.Named("worker"),
	)
	worker.Run(ctx)
}
