//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	// Frames stops the runner after N steps (0 = run until ctx is done).
	Frames uint64
	// Terminal turns stdin into a USB boot keyboard.
	Terminal bool
}

// RunHeadless runs the app step at cfg.Hz without opening a window.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := newHostHAL()
	step := newApp(h)

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	if cfg.Terminal {
		kbd := newTerminalKeyboard(h.usb, h.logger)
		g.Go(func() error { return kbd.run(ctx) })
	}

	g.Go(func() error {
		defer cancel()
		t := time.NewTicker(d)
		defer t.Stop()

		var frames uint64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				h.t.step(1)
				if step != nil {
					if err := step(); err != nil {
						return err
					}
				}
				frames++
				if cfg.Frames > 0 && frames >= cfg.Frames {
					return nil
				}
			}
		}
	})

	return g.Wait()
}
