package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"brieflow/internal/logging"
)

// startHeartbeat logs that a stage is still running every interval until ctx
// is cancelled.
func startHeartbeat(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, interval time.Duration, started time.Time) {
	defer wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger = logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat"))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info(
				"stage still running",
				logging.String(logging.FieldEventType, "stage_heartbeat"),
				logging.Duration("elapsed", time.Since(started).Round(time.Second)),
			)
		}
	}
}
