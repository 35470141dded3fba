package alerts

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandPlayer_FallsBackToBell(t *testing.T) {
	var bell bytes.Buffer
	p := NewCommandPlayer("/nonexistent/player", "alert.wav", zap.NewNop())
	p.bell = &bell

	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, "\a", bell.String())
	assert.Error(t, p.Resume(context.Background()))
}

func TestCommandPlayer_Args(t *testing.T) {
	p := NewCommandPlayer("/usr/bin/paplay", "alert.wav", zap.NewNop())
	p.SetVolume(0.5)
	assert.Equal(t, []string{"--volume=32768", "alert.wav"}, p.args())

	p = NewCommandPlayer("aplay", "alert.wav", zap.NewNop())
	assert.Equal(t, []string{"-q", "alert.wav"}, p.args())
}
