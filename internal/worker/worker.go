package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/service"
)

// EventCompleter closes events whose date has passed.
type EventCompleter interface {
	CompletePastEvents(ctx context.Context) (int64, error)
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartCompletionSweeper marks past events completed once per interval until
// ctx is done. The returned channel is closed when the loop has exited. A
// non-positive interval starts nothing.
func StartCompletionSweeper(ctx context.Context, completer EventCompleter, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if completer == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := completer.CompletePastEvents(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logger.Warn("completion sweep failed", zap.Error(err))
					}
					continue
				}
				if n > 0 {
					logger.Info("events completed", zap.Int64("count", n))
				}
			}
		}
	}()
	return done
}
