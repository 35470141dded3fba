package bgcheck

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	DefaultPageChannel     = "tank-monitor:clients"
	MessageBackgroundAlert = "BACKGROUND_ALERT"
)

// PageMessage is posted by the worker to running dashboard processes.
type PageMessage struct {
	Type string      `json:"type"`
	Data CheckResult `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, msg PageMessage) error
}

// Messenger carries page messages over redis pub/sub. Delivery is at most
// once and messages published while no dashboard listens are lost.
type Messenger struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewMessenger(rdb *redis.Client, channel string, logger *zap.Logger) *Messenger {
	if channel == "" {
		channel = DefaultPageChannel
	}
	return &Messenger{rdb: rdb, channel: channel, logger: logger}
}

func (m *Messenger) Publish(ctx context.Context, msg PageMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, m.channel, payload).Err()
}

// Listen delivers page messages to handle until ctx is cancelled.
// It returns once the subscription is confirmed.
func (m *Messenger) Listen(ctx context.Context, handle func(PageMessage)) error {
	sub := m.rdb.Subscribe(ctx, m.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe to %s: %w", m.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg PageMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					m.logger.Warn("ignoring malformed page message", zap.Error(err))
					continue
				}
				handle(msg)
			}
		}
	}()
	return nil
}
