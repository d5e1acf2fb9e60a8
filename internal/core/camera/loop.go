package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// Readiness is implemented by cameras that can report whether they are
// mounted. Cameras that don't are assumed ready.
type Readiness interface {
	Ready() bool
}

// Run waits for the camera to be ready, then ticks once per frame until
// ctx is cancelled or the controller is closed. Frames where the camera is
// temporarily unavailable are skipped.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.waitReady(ctx); err != nil {
		if errors.Is(err, domain.ErrControllerClosed) {
			return nil
		}
		return err
	}

	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case now := <-ticker.C:
			pov, err := c.Tick(now)
			switch {
			case errors.Is(err, domain.ErrControllerClosed):
				return nil
			case errors.Is(err, domain.ErrCameraNotReady):
				continue
			case err != nil:
				return fmt.Errorf("camera tick: %w", err)
			}
			if c.onFrame != nil {
				c.onFrame(pov)
			}
		}
	}
}

func (c *Controller) waitReady(ctx context.Context) error {
	r, ok := c.cam.(Readiness)
	if !ok {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = c.cfg.ReadyTimeout

	op := func() error {
		select {
		case <-c.done:
			return backoff.Permanent(domain.ErrControllerClosed)
		default:
		}
		if !r.Ready() {
			return domain.ErrCameraNotReady
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("wait for camera: %w", err)
	}
	return nil
}
