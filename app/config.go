package app

import (
	"time"

	"nesport/emu"
	"nesport/hid"
	"nesport/rom"
)

// Config selects what the system boots and how the pipelines behave.
type Config struct {
	// Width and Height are the emulator canvas.
	Width  int
	Height int
	// DirtyRects limits blits to the regions the core reports.
	DirtyRects bool

	QueueDepth   int
	PollInterval time.Duration

	// ROM is the cartridge source; nil reads the flash partition.
	ROM rom.Source
	// Core is the emulation core; nil boots the testcard.
	Core emu.Core

	// SnapshotDir enables F1 snapshots into the directory.
	SnapshotDir   string
	SnapshotScale int

	// ExitOnFatal makes the host step return fatal errors instead of
	// leaving the diagnostic screen up.
	ExitOnFatal bool
}

// DefaultConfig is the configuration used on devices.
func DefaultConfig() Config {
	return Config{
		Width:         256,
		Height:        240,
		QueueDepth:    hid.DefaultQueueDepth,
		PollInterval:  hid.DefaultPollInterval,
		SnapshotScale: 2,
	}
}
