package livefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, body string, hold bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
		w.(http.Flusher).Flush()
		if hold {
			<-r.Context().Done()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSSE_DecodesStatusAndSignals(t *testing.T) {
	body := ": keepalive\n\n" +
		"data: {\"percentage\":42,\"volume\":420,\"alive\":true}\n\n" +
		"event: offline\ndata: {}\n\n" +
		"event: battery\ndata: {\"level\":3}\n\n" +
		"{\"percentage\":43,\"volume\":430,\"alive\":true}\n" +
		"event: end-connection\n\n" +
		"event: timeout\n\n"
	srv := sseServer(t, body, true)

	stream, err := NewSSETransport(srv.Client(), time.Minute).Open(context.Background(), srv.URL)
	require.NoError(t, err)
	defer stream.Close()

	expect := []Frame{
		{Kind: FrameStatus, Data: []byte(`{"percentage":42,"volume":420,"alive":true}`)},
		{Kind: FrameOffline, Data: []byte(`{}`)},
		{Kind: FrameStatus, Data: []byte(`{"percentage":43,"volume":430,"alive":true}`)},
		{Kind: FrameOffline, Data: []byte{}},
		{Kind: FrameTimeout, Data: []byte{}},
	}
	for i, want := range expect {
		got, err := stream.Next()
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, want.Kind, got.Kind, "frame %d", i)
		assert.Equal(t, string(want.Data), string(got.Data), "frame %d", i)
	}
}

func TestSSE_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewSSETransport(srv.Client(), time.Minute).Open(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSSE_ServerErrorIsNotUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSSETransport(srv.Client(), time.Minute).Open(context.Background(), srv.URL)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestSSE_IdleTimeout(t *testing.T) {
	srv := sseServer(t, "", true)

	stream, err := NewSSETransport(srv.Client(), 50*time.Millisecond).Open(context.Background(), srv.URL)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.ErrorIs(t, err, ErrFeedTimeout)
}

func TestSSE_ClosedByServer(t *testing.T) {
	srv := sseServer(t, "data: {\"percentage\":1,\"volume\":1,\"alive\":true}\n\n", false)

	stream, err := NewSSETransport(srv.Client(), time.Minute).Open(context.Background(), srv.URL)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.NoError(t, err)
	_, err = stream.Next()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrFeedTimeout)
}
