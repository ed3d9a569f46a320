// Package notifier pushes high-priority alerts to an external webhook.
package notifier

import (
	"context"
	"fmt"
	"time"

	"deskwell/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier receives alerts the coordinator decided to surface beyond the
// dashboard.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert *models.Alert) error
}

// WebhookNotifier POSTs high-priority alerts to a configured URL. An empty
// URL disables delivery. Failures are logged and returned but never block
// ingestion; the alert is already durable by the time we get here.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewWebhookNotifier(url string, client *resty.Client, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

type alertPayload struct {
	AlertID   string `json:"alert_id"`
	SessionID string `json:"session_id"`
	AlertKind string `json:"alert_kind"`
	Priority  string `json:"priority"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (n *WebhookNotifier) NotifyAlert(ctx context.Context, alert *models.Alert) error {
	if n.url == "" {
		return nil
	}
	if alert.Priority != models.PriorityHigh {
		return nil
	}

	payload := alertPayload{
		AlertID:   alert.ID,
		SessionID: alert.SessionID,
		AlertKind: alert.AlertKind,
		Priority:  string(alert.Priority),
		Message:   alert.Message,
		Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.url)
	if err != nil {
		n.logger.Warn("alert webhook delivery failed",
			zap.String("alert_id", alert.ID),
			zap.Error(err))
		return fmt.Errorf("failed to deliver alert webhook: %w", err)
	}
	if resp.StatusCode() >= 300 {
		n.logger.Warn("alert webhook rejected",
			zap.String("alert_id", alert.ID),
			zap.Int("status", resp.StatusCode()))
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	return nil
}
