package alerts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEncodeBuzzerFrame(t *testing.T) {
	frame := EncodeBuzzerFrame([]int{200, 100, 200, 5000, -10})

	require.Equal(t, []byte{0xAA, 5, 20, 10, 20, 255, 0}, frame[:7])
	sum := crc16.Checksum(frame[:7], crc16.MakeTable(crc16.CRC16_ARC))
	assert.Equal(t, byte(sum>>8), frame[7])
	assert.Equal(t, byte(sum), frame[8])
}

type fakePort struct {
	bytes.Buffer
	failWrites bool
	closed     bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.failWrites {
		return 0, errors.New("device unplugged")
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialBuzzer_OpensLazilyAndReopensAfterFailure(t *testing.T) {
	var ports []*fakePort
	buzzer := newSerialBuzzer(func() (io.ReadWriteCloser, error) {
		p := &fakePort{}
		ports = append(ports, p)
		return p, nil
	}, zap.NewNop())

	require.Empty(t, ports)
	require.NoError(t, buzzer.Vibrate(context.Background(), []int{200}))
	require.Len(t, ports, 1)
	assert.Equal(t, EncodeBuzzerFrame([]int{200}), ports[0].Bytes())

	ports[0].failWrites = true
	require.Error(t, buzzer.Vibrate(context.Background(), []int{200}))
	assert.True(t, ports[0].closed)

	require.NoError(t, buzzer.Vibrate(context.Background(), []int{200, 100, 200}))
	require.Len(t, ports, 2)
	require.NoError(t, buzzer.Close())
	assert.True(t, ports[1].closed)
}

func TestSerialBuzzer_OpenFailure(t *testing.T) {
	buzzer := newSerialBuzzer(func() (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}, zap.NewNop())
	require.Error(t, buzzer.Vibrate(context.Background(), []int{200}))
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTTClient struct {
	mqtt.Client
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return newFakeToken(c.err)
}

func TestMQTTBuzzer_PublishesPattern(t *testing.T) {
	client := &fakeMQTTClient{}
	buzzer := newMQTTBuzzer(client, "tank/buzzer")

	require.NoError(t, buzzer.Vibrate(context.Background(), []int{200, 100, 200}))
	assert.Equal(t, "tank/buzzer", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.JSONEq(t, `{"pattern":[200,100,200]}`, string(client.payload))

	client.err = errors.New("not connected")
	require.Error(t, buzzer.Vibrate(context.Background(), []int{200}))
}
