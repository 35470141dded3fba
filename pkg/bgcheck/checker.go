package bgcheck

import (
	"context"
	"sync"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/metrics"
	"go.uber.org/zap"
)

// TaskTag names the periodic task in the registry.
const TaskTag = "check-alerts"

// Checker polls for pending alerts on a ticker while the dashboard runs and,
// when background sync is available, also registers the periodic task so
// the worker keeps checking without it.
type Checker struct {
	querier   Querier
	sink      AlertSink
	registrar Registrar
	logger    *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	interval time.Duration
}

// NewChecker builds a checker. registrar is nil when background sync is unsupported.
func NewChecker(querier Querier, sink AlertSink, registrar Registrar, logger *zap.Logger) *Checker {
	return &Checker{
		querier:   querier,
		sink:      sink,
		registrar: registrar,
		logger:    logger,
	}
}

// Start (re)arms the poll ticker. Calling it while active replaces the old ticker.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if c.registrar != nil {
		if err := c.registrar.Register(ctx, TaskTag, interval); err != nil {
			c.logger.Warn("periodic background sync registration failed, polling only", zap.Error(err))
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.interval = interval
	go c.loop(loopCtx, interval)

	c.logger.Info("background checking started", zap.Duration("interval", interval))
}

// Stop cancels the ticker and unregisters the periodic task. Safe to call repeatedly.
func (c *Checker) Stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasActive := c.cancel != nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.registrar != nil {
		if err := c.registrar.Unregister(ctx, TaskTag); err != nil {
			c.logger.Warn("failed to unregister periodic background sync", zap.Error(err))
		}
	}
	if wasActive {
		c.logger.Info("background checking stopped")
	}
}

func (c *Checker) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Checker) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Poll runs one check and hands a positive result to the sink.
func (c *Checker) Poll(ctx context.Context) error {
	return runCheck(ctx, c.querier, c.sink, c.logger)
}

func (c *Checker) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Poll(ctx)
		}
	}
}

func runCheck(ctx context.Context, querier Querier, sink AlertSink, logger *zap.Logger) error {
	result, err := querier.Check(ctx)
	if err != nil {
		metrics.BackgroundChecks.WithLabelValues("error").Inc()
		logger.Warn("background alert check failed", zap.Error(err))
		return err
	}
	if !result.HasAlert {
		metrics.BackgroundChecks.WithLabelValues("clear").Inc()
		return nil
	}

	metrics.BackgroundChecks.WithLabelValues("alert").Inc()
	logger.Info("background check found an alert", zap.String("message", result.Message))
	if err := sink.Deliver(ctx, result); err != nil {
		logger.Warn("failed to deliver background alert", zap.Error(err))
		return err
	}
	return nil
}
