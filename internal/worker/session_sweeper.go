package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dashboard-gate/internal/session"
)

// StartSessionSweeper drops expired sessions every interval until ctx is done.
func StartSessionSweeper(ctx context.Context, registry *session.Registry, interval time.Duration, logger *zap.Logger) {
	if registry == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := registry.Sweep(); removed > 0 {
					logger.Debug("expired sessions removed", zap.Int("count", removed))
				}
			}
		}
	}()
}
