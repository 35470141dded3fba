package livefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
)

type FrameKind int

const (
	FrameStatus FrameKind = iota
	FrameOffline
	FrameTimeout
)

// Frame is one unit received from the feed: a status payload or an out-of-band signal.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Transport opens server-push connections to the feed.
type Transport interface {
	Open(ctx context.Context, feedURL string) (Stream, error)
}

// Stream is one open feed connection. Next blocks until a frame arrives or
// the connection fails. Close may be called concurrently with Next.
type Stream interface {
	Next() (Frame, error)
	Close() error
}

// TransportFor picks the transport matching the scheme of baseURL.
func TransportFor(baseURL string, idleTimeout time.Duration) (Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		// No client timeout, the response body lives as long as the feed
		return NewSSETransport(&http.Client{}, idleTimeout), nil
	case "ws", "wss":
		return NewWebsocketTransport(idleTimeout), nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidFeedURL, u.Scheme)
	}
}

// FeedURL builds the connection URL for a session. The whole config is
// passed along so the feed can compute percentage and volume server side.
func FeedURL(baseURL, path string, cfg types.SessionConfig) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFeedURL, baseURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + path
	q := u.Query()
	q.Set("api_key", cfg.Credential)
	q.Set("tankHeight", formatFloat(cfg.TankHeight))
	q.Set("totalVolume", formatFloat(cfg.TankVolume))
	q.Set("fullGap", formatFloat(cfg.FullGap))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func signalKind(event string) (FrameKind, bool) {
	switch event {
	case "", "message", "status":
		return FrameStatus, true
	case "offline", "end-connection":
		return FrameOffline, true
	case "timeout":
		return FrameTimeout, true
	default:
		return 0, false
	}
}
