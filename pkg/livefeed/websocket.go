package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	pingInterval     = 30 * time.Second
	closeGrace       = time.Second
)

type websocketTransport struct {
	idleTimeout time.Duration
}

func NewWebsocketTransport(idleTimeout time.Duration) Transport {
	return &websocketTransport{idleTimeout: idleTimeout}
}

func (t *websocketTransport) Open(ctx context.Context, feedURL string) (Stream, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	c, resp, err := dialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: http %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, err
	}

	s := &websocketStream{
		conn:        c,
		idleTimeout: t.idleTimeout,
		done:        make(chan struct{}),
	}
	s.resetDeadline()

	// Keep intermediaries from dropping a quiet connection
	go s.pingLoop()
	return s, nil
}

type websocketStream struct {
	conn        *websocket.Conn
	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

// Text frames carry JSON. An object with an "event" field naming a signal
// is a signal; everything else goes to the status parser.
func (s *websocketStream) Next() (Frame, error) {
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return Frame{}, fmt.Errorf("%w: no data for %s", ErrFeedTimeout, s.idleTimeout)
			}
			return Frame{}, err
		}
		s.resetDeadline()

		if messageType != websocket.TextMessage {
			continue
		}

		var envelope struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil || envelope.Event == "" {
			return Frame{Kind: FrameStatus, Data: message}, nil
		}
		kind, known := signalKind(envelope.Event)
		if !known {
			continue
		}
		return Frame{Kind: kind, Data: message}, nil
	}
}

func (s *websocketStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace),
		)
		err = s.conn.Close()
	})
	return err
}

func (s *websocketStream) resetDeadline() {
	if s.idleTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	}
}

func (s *websocketStream) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeGrace)); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
