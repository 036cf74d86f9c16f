package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Run sweeps immediately and then on every tick until the context is
// cancelled. A tick that fires while a sweep is still running is dropped;
// the sweep itself is idempotent, so a dropped tick costs nothing.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	c.logger.Info("Lifecycle runner started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.runSweep(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Lifecycle runner stopped")
			return
		case <-ticker.C:
			c.runSweep(ctx)
		}
	}
}

func (c *Controller) runSweep(ctx context.Context) {
	if err := c.Sweep(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			c.logger.Debug("Skipping tick, previous sweep still running")
			return
		}
		c.logger.Error("Lifecycle sweep failed", zap.Error(err))
	}
}
