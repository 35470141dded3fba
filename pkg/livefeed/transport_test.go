package livefeed

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedURL(t *testing.T) {
	raw, err := FeedURL("https://sensor.example/api/", "/events", testSession)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/events", u.Path)
	q := u.Query()
	assert.Equal(t, "k1", q.Get("api_key"))
	assert.Equal(t, "120", q.Get("tankHeight"))
	assert.Equal(t, "1000", q.Get("totalVolume"))
	assert.Equal(t, "10", q.Get("fullGap"))
}

func TestFeedURL_EscapesCredential(t *testing.T) {
	cfg := testSession
	cfg.Credential = "a&b=c"
	raw, err := FeedURL("http://localhost:8000", "/events", cfg)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "a&b=c", u.Query().Get("api_key"))
}

func TestFeedURL_Invalid(t *testing.T) {
	for _, base := range []string{"", "localhost", "://nope"} {
		_, err := FeedURL(base, "/events", testSession)
		require.ErrorIs(t, err, ErrInvalidFeedURL, base)
	}
}

func TestTransportFor(t *testing.T) {
	tr, err := TransportFor("https://sensor.example", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &sseTransport{}, tr)

	tr, err = TransportFor("wss://sensor.example", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &websocketTransport{}, tr)

	_, err = TransportFor("ftp://sensor.example", time.Minute)
	require.ErrorIs(t, err, ErrInvalidFeedURL)
}
