package livefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/metrics"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"go.uber.org/zap"
)

const DefaultReconnectDelay = 3 * time.Second

// Timer is the part of *time.Timer the connector needs.
type Timer interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Timer

type Option func(*Connector)

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for the reconnect timer.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Connector) { c.afterFunc = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Connector) { c.now = now }
}

// Events processed by the connector loop, in arrival order.
type (
	startEvent  struct{ cfg types.SessionConfig }
	stopEvent   struct{}
	openedEvent struct {
		gen    uint64
		stream Stream
	}
	frameEvent struct {
		gen   uint64
		frame Frame
	}
	failedEvent struct {
		gen uint64
		err error
	}
	retryEvent struct{ tok uint64 }
)

// Connector keeps one live connection to the sensor feed for the active
// session and reconnects after a fixed delay when it is lost.
type Connector struct {
	transport      Transport
	baseURL        string
	path           string
	reconnectDelay time.Duration
	afterFunc      AfterFunc
	now            func() time.Time
	logger         *zap.Logger

	events chan any
	done   chan struct{}

	// Owned by the loop goroutine
	runCtx     context.Context
	cfg        *types.SessionConfig
	feedURL    string
	gen        uint64
	stream     Stream
	cancelDial context.CancelFunc
	timer      Timer
	retryTok   uint64

	mu        sync.RWMutex
	state     State
	observers []func(State)
}

func NewConnector(transport Transport, baseURL, path string, logger *zap.Logger, opts ...Option) *Connector {
	c := &Connector{
		transport:      transport,
		baseURL:        baseURL,
		path:           path,
		reconnectDelay: DefaultReconnectDelay,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		logger: logger,
		events: make(chan any, 64),
		done:   make(chan struct{}),
		state:  State{Phase: Disconnected},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes connector events until ctx is cancelled, then tears the
// connection down. Start and Stop only take effect while Run is active.
func (c *Connector) Run(ctx context.Context) {
	c.runCtx = ctx
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			c.update(func(s *State) { *s = State{Phase: Disconnected} })
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Connector) Start(cfg types.SessionConfig) {
	c.post(startEvent{cfg: cfg})
}

func (c *Connector) Stop() {
	c.post(stopEvent{})
}

// HandleSessionChange follows the session store: nil stops, anything else (re)starts.
func (c *Connector) HandleSessionChange(cfg *types.SessionConfig) {
	if cfg == nil {
		c.Stop()
		return
	}
	c.Start(*cfg)
}

// OnChange registers fn to receive every new state. fn runs on the connector
// loop and must not block.
func (c *Connector) OnChange(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Connector) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connector) post(ev any) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Connector) handle(ev any) {
	switch e := ev.(type) {
	case startEvent:
		c.handleStart(e.cfg)
	case stopEvent:
		c.teardown()
		c.cfg = nil
		c.update(func(s *State) { *s = State{Phase: Disconnected} })
		c.logger.Info("live feed stopped")
	case openedEvent:
		c.handleOpened(e)
	case frameEvent:
		if e.gen == c.gen {
			c.handleFrame(e.frame)
		}
	case failedEvent:
		if e.gen == c.gen {
			c.fail(e.err)
		}
	case retryEvent:
		c.handleRetry(e.tok)
	}
}

func (c *Connector) handleStart(cfg types.SessionConfig) {
	c.teardown()
	c.cfg = &cfg

	feedURL, err := FeedURL(c.baseURL, c.path, cfg)
	if err != nil {
		c.logger.Error("cannot build feed url", zap.Error(err))
		c.update(func(s *State) { *s = State{Phase: Errored, LastError: err} })
		return
	}
	c.feedURL = feedURL

	c.update(func(s *State) { *s = State{Phase: Connecting} })
	c.dial()
}

func (c *Connector) dial() {
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.runCtx)
	c.cancelDial = cancel
	feedURL := c.feedURL

	go func() {
		stream, err := c.transport.Open(ctx, feedURL)
		if err != nil {
			c.post(failedEvent{gen: gen, err: err})
			return
		}
		if !c.post(openedEvent{gen: gen, stream: stream}) {
			stream.Close()
		}
	}()
}

func (c *Connector) handleOpened(e openedEvent) {
	if e.gen != c.gen {
		e.stream.Close()
		return
	}
	c.stream = e.stream
	c.update(func(s *State) {
		s.Phase = Live
		s.LastError = nil
	})
	c.logger.Info("live feed connected")
	go c.read(e.gen, e.stream)
}

func (c *Connector) read(gen uint64, stream Stream) {
	for {
		frame, err := stream.Next()
		if err != nil {
			c.post(failedEvent{gen: gen, err: err})
			return
		}
		if !c.post(frameEvent{gen: gen, frame: frame}) {
			return
		}
	}
}

func (c *Connector) handleFrame(frame Frame) {
	switch frame.Kind {
	case FrameStatus:
		status, err := ParseStatus(frame.Data)
		if err != nil {
			metrics.FeedMessages.WithLabelValues("malformed").Inc()
			c.logger.Warn("ignoring malformed feed message", zap.Error(err))
			return
		}
		metrics.FeedMessages.WithLabelValues("status").Inc()
		seenAt := c.now()
		c.update(func(s *State) {
			s.Phase = Live
			s.LastStatus = &status
			s.LastSeenAt = seenAt
			s.LastError = nil
		})
	case FrameOffline:
		metrics.FeedMessages.WithLabelValues("offline").Inc()
		c.logger.Info("sensor reported offline")
		c.update(func(s *State) {
			if s.LastStatus != nil {
				offline := s.LastStatus.WithAlive(false)
				s.LastStatus = &offline
			}
		})
	case FrameTimeout:
		metrics.FeedMessages.WithLabelValues("timeout").Inc()
		c.fail(ErrFeedTimeout)
	}
}

// fail drops the current connection and schedules a reconnect, except for
// rejected credentials which park the connector in Errored.
func (c *Connector) fail(err error) {
	c.closeConn()
	c.gen++

	if errors.Is(err, ErrUnauthorized) {
		c.logger.Error("live feed rejected credentials", zap.Error(err))
		c.cancelTimer()
		c.update(func(s *State) {
			s.Phase = Errored
			s.LastError = err
			c.markNotAlive(s)
		})
		return
	}

	reason := err
	if !errors.Is(err, ErrFeedTimeout) {
		reason = fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	c.logger.Warn("live feed lost, reconnecting",
		zap.Error(reason),
		zap.Duration("delay", c.reconnectDelay),
	)
	c.update(func(s *State) {
		s.Phase = Reconnecting
		s.LastError = reason
		c.markNotAlive(s)
	})
	c.scheduleReconnect()
}

func (c *Connector) markNotAlive(s *State) {
	if s.LastStatus != nil && s.LastStatus.Alive {
		status := s.LastStatus.WithAlive(false)
		s.LastStatus = &status
	}
}

// scheduleReconnect arms the reconnect timer unless one is already pending.
func (c *Connector) scheduleReconnect() {
	if c.timer != nil {
		return
	}
	c.retryTok++
	tok := c.retryTok
	c.timer = c.afterFunc(c.reconnectDelay, func() {
		c.post(retryEvent{tok: tok})
	})
	metrics.FeedReconnects.Inc()
}

func (c *Connector) handleRetry(tok uint64) {
	if c.timer == nil || tok != c.retryTok {
		return
	}
	c.timer = nil
	if c.cfg == nil {
		return
	}
	c.update(func(s *State) { s.Phase = Connecting })
	c.dial()
}

func (c *Connector) teardown() {
	c.cancelTimer()
	c.closeConn()
	c.gen++
}

func (c *Connector) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.retryTok++
}

func (c *Connector) closeConn() {
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			c.logger.Debug("error closing feed stream", zap.Error(err))
		}
		c.stream = nil
	}
}

func (c *Connector) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state
	observers := make([]func(State), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
}
