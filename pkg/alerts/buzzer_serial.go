package alerts

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"
	"github.com/sigurn/crc16"
	"go.uber.org/zap"
)

const serialFrameStart = 0xAA

// SerialBuzzer sends vibration patterns to a buzzer board on a serial port.
// Frame: 0xAA, step count, one byte per step in 10ms units, CRC16/ARC big endian.
type SerialBuzzer struct {
	open   func() (io.ReadWriteCloser, error)
	logger *zap.Logger

	mu   sync.Mutex
	port io.ReadWriteCloser
}

func NewSerialBuzzer(device string, baudrate uint, logger *zap.Logger) *SerialBuzzer {
	return newSerialBuzzer(func() (io.ReadWriteCloser, error) {
		options := serial.OpenOptions{
			PortName:        device,
			BaudRate:        baudrate,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
		}
		return serial.Open(options)
	}, logger)
}

func newSerialBuzzer(open func() (io.ReadWriteCloser, error), logger *zap.Logger) *SerialBuzzer {
	return &SerialBuzzer{open: open, logger: logger}
}

// Vibrate opens the port on first use and reopens it after a failed write.
func (b *SerialBuzzer) Vibrate(ctx context.Context, pattern []int) error {
	frame := EncodeBuzzerFrame(pattern)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		port, err := b.open()
		if err != nil {
			return fmt.Errorf("failed to open buzzer port: %w", err)
		}
		b.port = port
		b.logger.Info("buzzer port opened")
	}

	if _, err := b.port.Write(frame); err != nil {
		b.port.Close()
		b.port = nil
		return fmt.Errorf("failed to write buzzer frame: %w", err)
	}
	return nil
}

func (b *SerialBuzzer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	return err
}

func EncodeBuzzerFrame(pattern []int) []byte {
	if len(pattern) > 255 {
		pattern = pattern[:255]
	}
	frame := make([]byte, 0, len(pattern)+4)
	frame = append(frame, serialFrameStart, byte(len(pattern)))
	for _, ms := range pattern {
		step := ms / 10
		if step < 0 {
			step = 0
		}
		if step > 255 {
			step = 255
		}
		frame = append(frame, byte(step))
	}

	table := crc16.MakeTable(crc16.CRC16_ARC)
	sum := crc16.Checksum(frame, table)
	return append(frame, byte(sum>>8), byte(sum))
}
