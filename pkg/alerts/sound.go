package alerts

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

type SoundPlayer interface {
	Play(ctx context.Context) error
	Resume(ctx context.Context) error
	SetVolume(volume float64)
}

// CommandPlayer plays the alert sound through an external player such as
// paplay or aplay. When the player cannot be started it rings the terminal bell.
type CommandPlayer struct {
	command string
	file    string
	bell    io.Writer
	logger  *zap.Logger

	mu     sync.Mutex
	volume float64
}

func NewCommandPlayer(command, file string, logger *zap.Logger) *CommandPlayer {
	return &CommandPlayer{
		command: command,
		file:    file,
		bell:    os.Stdout,
		logger:  logger,
		volume:  1,
	}
}

func (p *CommandPlayer) SetVolume(volume float64) {
	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
}

// Play starts the player and returns without waiting for playback to finish.
func (p *CommandPlayer) Play(ctx context.Context) error {
	cmd := exec.Command(p.command, p.args()...)
	if err := cmd.Start(); err != nil {
		p.logger.Warn("sound player failed to start, using bell", zap.String("player", p.command), zap.Error(err))
		if _, bellErr := io.WriteString(p.bell, "\a"); bellErr != nil {
			return fmt.Errorf("play alert sound: %w", err)
		}
		return nil
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			p.logger.Debug("sound player exited with error", zap.Error(err))
		}
	}()
	return nil
}

// Resume checks the player is still available so the next alert can sound.
func (p *CommandPlayer) Resume(ctx context.Context) error {
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("sound player %q unavailable: %w", p.command, err)
	}
	return nil
}

func (p *CommandPlayer) args() []string {
	p.mu.Lock()
	volume := p.volume
	p.mu.Unlock()

	var args []string
	switch filepath.Base(p.command) {
	case "paplay":
		// paplay volume is linear, 65536 = 100%
		args = append(args, fmt.Sprintf("--volume=%d", int(volume*65536)))
	case "aplay":
		args = append(args, "-q")
	}
	if p.file != "" {
		args = append(args, p.file)
	}
	return args
}
