// Package emu defines what the adaptation layer expects from an emulation
// core.
package emu

import (
	"nesport/input"
	"nesport/video"
)

// Core is an emulation core hosted by the adaptation layer.
type Core interface {
	Name() string
	// Boot validates img and prepares the core to draw through vid.
	Boot(img []byte, vid video.Driver) error
	// Inputs returns the handler lookup for controller slot.
	Inputs(slot int) input.Sink
	// RefreshHz is the rate Frame should be called at.
	RefreshHz() int
	// Frame runs one frame and blits it.
	Frame() error
}
