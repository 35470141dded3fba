package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTBuzzer publishes vibration patterns for a networked buzzer.
type MQTTBuzzer struct {
	client mqtt.Client
	topic  string
}

type buzzerCommand struct {
	Pattern []int `json:"pattern"`
}

func NewMQTTBuzzer(broker, topic, clientID string) (*MQTTBuzzer, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	return newMQTTBuzzer(client, topic), nil
}

func newMQTTBuzzer(client mqtt.Client, topic string) *MQTTBuzzer {
	return &MQTTBuzzer{client: client, topic: topic}
}

func (b *MQTTBuzzer) Vibrate(ctx context.Context, pattern []int) error {
	payload, err := json.Marshal(buzzerCommand{Pattern: pattern})
	if err != nil {
		return err
	}

	token := b.client.Publish(b.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-time.After(mqttPublishTimeout):
		return errors.New("timed out publishing buzzer pattern")
	case <-ctx.Done():
		return ctx.Err()
	}
	return token.Error()
}

func (b *MQTTBuzzer) Close() error {
	b.client.Disconnect(250)
	return nil
}
