package livefeed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type sseTransport struct {
	client      *http.Client
	idleTimeout time.Duration
}

// NewSSETransport reads the feed as text/event-stream. idleTimeout of zero
// disables idle detection.
func NewSSETransport(client *http.Client, idleTimeout time.Duration) Transport {
	return &sseTransport{client: client, idleTimeout: idleTimeout}
}

func (t *sseTransport) Open(ctx context.Context, feedURL string) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: http %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("feed responded with http %d", resp.StatusCode)
	}

	s := &sseStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		cancel: cancel,
	}
	if t.idleTimeout > 0 {
		s.idle = time.AfterFunc(t.idleTimeout, func() {
			s.idled.Store(true)
			cancel()
		})
		s.idleTimeout = t.idleTimeout
	}
	return s, nil
}

type sseStream struct {
	body        io.ReadCloser
	reader      *bufio.Reader
	cancel      context.CancelFunc
	idle        *time.Timer
	idleTimeout time.Duration
	idled       atomic.Bool
	closeOnce   sync.Once
}

// Next returns the next dispatched event. Unnamed events and bare JSON
// lines are status frames; unknown named events are skipped.
func (s *sseStream) Next() (Frame, error) {
	var (
		event string
		data  bytes.Buffer
	)

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if s.idled.Load() {
				return Frame{}, fmt.Errorf("%w: no data for %s", ErrFeedTimeout, s.idleTimeout)
			}
			if errors.Is(err, io.EOF) {
				return Frame{}, errors.New("feed closed the stream")
			}
			return Frame{}, err
		}
		if s.idle != nil {
			s.idle.Reset(s.idleTimeout)
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if event == "" && data.Len() == 0 {
				continue
			}
			kind, known := signalKind(event)
			if !known || (kind == FrameStatus && data.Len() == 0) {
				event = ""
				data.Reset()
				continue
			}
			return Frame{Kind: kind, Data: append([]byte(nil), data.Bytes()...)}, nil
		case strings.HasPrefix(line, ":"):
			// comment / keepalive
		case strings.HasPrefix(line, "{") && event == "" && data.Len() == 0:
			return Frame{Kind: FrameStatus, Data: []byte(line)}, nil
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				event = value
			case "data":
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(value)
			}
		}
	}
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.idle != nil {
			s.idle.Stop()
		}
		s.cancel()
		err = s.body.Close()
	})
	return err
}
