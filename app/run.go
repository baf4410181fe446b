package app

import (
	"context"

	"nesport/hal"
)

// NewStep adapts the system to the host runners, which call the returned
// step once per host frame. Fatal errors put up the diagnostic screen.
func NewStep(cfg Config) func(hal.HAL) func() error {
	return func(h hal.HAL) func() error {
		s, err := New(h, cfg)
		if err != nil {
			ShowDiagnostic(h, err)
			return idle(cfg, err)
		}
		s.Start(context.Background())

		var fatal error
		return func() error {
			if fatal != nil {
				return idle(cfg, fatal)()
			}
			if err := s.Step(); err != nil {
				fatal = err
				ShowDiagnostic(h, err)
				return idle(cfg, err)()
			}
			return nil
		}
	}
}

func idle(cfg Config, err error) func() error {
	return func() error {
		if cfg.ExitOnFatal {
			return err
		}
		return nil
	}
}

// Run boots the system and drives it from the platform ticks forever. It is
// the device entry point.
func Run(h hal.HAL, cfg Config) {
	s, err := New(h, cfg)
	if err != nil {
		ShowDiagnostic(h, err)
		select {}
	}
	if err := s.Run(context.Background()); err != nil {
		ShowDiagnostic(h, err)
	}
	select {}
}
