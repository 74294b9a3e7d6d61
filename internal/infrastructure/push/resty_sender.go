// Package push implements the outbound push-delivery contract against an
// HTTP push gateway. Delivery is best-effort; callers aggregate failures
// into result metadata instead of propagating them.
package push

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/infrastructure/config"
)

// RestySender sends push messages to an HTTP gateway
type RestySender struct {
	client *resty.Client
	logger *zap.Logger
}

// NewRestySender creates a sender for the configured gateway
func NewRestySender(cfg config.PushConfig, logger *zap.Logger) *RestySender {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &RestySender{
		client: client,
		logger: logger.Named("push"),
	}
}

type gatewayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Send delivers one message to one token
func (s *RestySender) Send(ctx context.Context, msg notification.PushMessage) error {
	var result gatewayResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&result).
		Post("/v1/send")
	if err != nil {
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push gateway returned %s", resp.Status())
	}
	if !result.Success {
		return fmt.Errorf("push delivery rejected: %s", result.Error)
	}

	s.logger.Debug("push delivered", zap.String("title", msg.Title))
	return nil
}

// Ensure RestySender implements PushSender
var _ notification.PushSender = (*RestySender)(nil)
