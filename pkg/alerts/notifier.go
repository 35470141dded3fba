package alerts

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type Notifier interface {
	// RequestPermission asks the user to allow notifications. A denial is not an error.
	RequestPermission(ctx context.Context) (bool, error)
	Show(ctx context.Context, payload types.NotificationPayload) error
}

// WebhookNotifier delivers system notifications through a push service.
// Subscribing is the permission prompt: 2xx grants, 403 denies.
type WebhookNotifier struct {
	httpClient *resty.Client
	icon       string
	badge      string
	clientID   string
	logger     *zap.Logger
}

type subscribeRequest struct {
	Client string `json:"client"`
}

func NewWebhookNotifier(baseURL, icon, badge string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	clientID, _ := os.Hostname()
	if clientID == "" {
		clientID = "water-tank-monitor"
	}

	return &WebhookNotifier{
		httpClient: client,
		icon:       icon,
		badge:      badge,
		clientID:   clientID,
		logger:     logger,
	}
}

func (n *WebhookNotifier) RequestPermission(ctx context.Context) (bool, error) {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(subscribeRequest{Client: n.clientID}).
		Post("/subscribe")
	if err != nil {
		return false, fmt.Errorf("failed to reach notification service: %w", err)
	}

	switch {
	case resp.IsSuccess():
		n.logger.Info("notification permission granted")
		return true, nil
	case resp.StatusCode() == http.StatusForbidden:
		n.logger.Info("notification permission denied")
		return false, nil
	default:
		return false, fmt.Errorf("notification service subscribe returned http %d", resp.StatusCode())
	}
}

// Show posts the notification. Missing icon and badge fall back to the configured ones.
func (n *WebhookNotifier) Show(ctx context.Context, payload types.NotificationPayload) error {
	if payload.Icon == "" {
		payload.Icon = n.icon
	}
	if payload.Badge == "" {
		payload.Badge = n.badge
	}

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/notify")
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("notification service returned http %d", resp.StatusCode())
	}
	return nil
}
