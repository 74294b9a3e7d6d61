package push

import (
	"context"

	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/domain/notification"
)

// NoopSender logs deliveries instead of sending them. Used when push is
// disabled in configuration and in tests.
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a sender that only logs
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger.Named("push")}
}

// Send logs the message and reports success
func (s *NoopSender) Send(ctx context.Context, msg notification.PushMessage) error {
	s.logger.Info("push delivery skipped (disabled)",
		zap.String("title", msg.Title),
	)
	return nil
}

// Ensure NoopSender implements PushSender
var _ notification.PushSender = (*NoopSender)(nil)
