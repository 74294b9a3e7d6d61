package tenantctx

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/infrastructure/config"
)

// StartupLoader drives tenant resolution during process startup. Transient
// failures are retried a bounded number of times with a fixed delay; fatal
// lookup failures and the expected pre-login state are returned immediately.
// When the retry budget runs out the process continues in degraded mode and
// a later sign-in event triggers resolution again.
type StartupLoader struct {
	tenantCtx *Context
	attempts  int
	delay     time.Duration
	logger    *zap.Logger
}

// NewStartupLoader creates a loader with the configured retry policy
func NewStartupLoader(tenantCtx *Context, cfg config.TenantConfig, logger *zap.Logger) *StartupLoader {
	return &StartupLoader{
		tenantCtx: tenantCtx,
		attempts:  cfg.RetryAttempts,
		delay:     cfg.RetryDelay,
		logger:    logger,
	}
}

// Load attempts tenant resolution until it succeeds, fails fatally, or the
// retry budget is exhausted
func (l *StartupLoader) Load(ctx context.Context) Result {
	var last Result
	for attempt := 1; attempt <= l.attempts; attempt++ {
		last = l.tenantCtx.Initialize(ctx)

		switch {
		case last.Success:
			return last
		case last.IsAuthError:
			// Not signed in yet; the sign-in event will retry for us
			l.logger.Info("tenant resolution deferred until sign-in")
			return last
		case last.Err != nil && identity.IsTenantInvalid(last.Err):
			l.logger.Error("tenant resolution failed fatally, not retrying",
				zap.Error(last.Err))
			return last
		}

		l.logger.Warn("tenant resolution attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", l.attempts),
			zap.Bool("timed_out", last.TimedOut),
			zap.Error(last.Err),
		)

		if attempt == l.attempts {
			break
		}
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			last.Err = ctx.Err()
			return last
		}
	}

	l.logger.Error("tenant resolution retry budget exhausted, continuing degraded",
		zap.Int("attempts", l.attempts))
	return last
}
