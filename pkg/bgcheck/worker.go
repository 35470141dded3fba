package bgcheck

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultScanInterval = 15 * time.Second

type registrationSource interface {
	Registrations(ctx context.Context) (map[string]time.Duration, error)
}

// Worker runs registered periodic tasks without a dashboard process.
type Worker struct {
	registry registrationSource
	querier  Querier
	sink     AlertSink
	scan     time.Duration
	now      func() time.Time
	logger   *zap.Logger

	lastRun map[string]time.Time
}

func NewWorker(registry *RedisRegistry, querier Querier, sink AlertSink, scan time.Duration, logger *zap.Logger) *Worker {
	if scan <= 0 {
		scan = DefaultScanInterval
	}
	return &Worker{
		registry: registry,
		querier:  querier,
		sink:     sink,
		scan:     scan,
		now:      time.Now,
		logger:   logger,
		lastRun:  make(map[string]time.Time),
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.scan)
	defer ticker.Stop()

	w.logger.Info("alert worker started", zap.Duration("scan_interval", w.scan))
	for {
		w.RunDue(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("alert worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunDue runs every registered task whose minimum interval has elapsed.
func (w *Worker) RunDue(ctx context.Context) {
	registrations, err := w.registry.Registrations(ctx)
	if err != nil {
		w.logger.Warn("failed to read periodic registrations", zap.Error(err))
		return
	}

	for tag := range w.lastRun {
		if _, ok := registrations[tag]; !ok {
			delete(w.lastRun, tag)
		}
	}

	now := w.now()
	for tag, minInterval := range registrations {
		if tag != TaskTag {
			w.logger.Debug("skipping unknown periodic task", zap.String("tag", tag))
			continue
		}
		if last, ok := w.lastRun[tag]; ok && now.Sub(last) < minInterval {
			continue
		}
		w.lastRun[tag] = now
		_ = runCheck(ctx, w.querier, w.sink, w.logger)
	}
}
