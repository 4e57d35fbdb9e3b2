package utils

import (
	"context"
	"time"
)

// StartPeriodic runs job every interval in a background goroutine until ctx
// is cancelled. It is best-effort: failures are logged and the loop continues.
func StartPeriodic(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			// Wait first to avoid racing the boot sequence
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			start := time.Now()
			if err := job(ctx); err != nil {
				Sugar.Warnf("periodic job %s failed: %v", name, err)
				continue
			}
			Sugar.Debugf("periodic job %s finished in %s", name, time.Since(start))
		}
	}()
}
