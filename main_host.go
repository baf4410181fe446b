//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"nesport/app"
	"nesport/hal"
	"nesport/internal/buildinfo"
	"nesport/rom"
)

func main() {
	var hcfg hal.HeadlessConfig
	var wcfg hal.WindowConfig
	cfg := app.DefaultConfig()
	var romPath string
	var version bool

	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Host step rate in headless mode.")
	flag.Uint64Var(&hcfg.Frames, "frames", 0, "Stop after N host steps in headless mode (0 = run forever).")
	flag.BoolVar(&hcfg.Terminal, "terminal", false, "Use the terminal as a USB keyboard in headless mode.")
	flag.StringVar(&romPath, "rom", "", "Cartridge file (.nes, .zip, .gz, .7z, .rar); empty reads the flash image.")
	flag.IntVar(&wcfg.Scale, "scale", 2, "Window scale.")
	flag.StringVar(&cfg.SnapshotDir, "snapshot", "", "Directory for F1 snapshots (empty = disabled).")
	flag.IntVar(&cfg.SnapshotScale, "snapshot-scale", cfg.SnapshotScale, "Snapshot scale factor.")
	flag.BoolVar(&cfg.DirtyRects, "dirty", false, "Blit only the regions the core reports as changed.")
	flag.BoolVar(&version, "version", false, "Print the build and exit.")
	flag.Parse()

	if version {
		fmt.Println("nesport", buildinfo.Short())
		return
	}
	if romPath != "" {
		cfg.ROM = rom.FileSource{Path: romPath}
	}

	if hcfg.Enabled {
		cfg.ExitOnFatal = true
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, app.NewStep(cfg), hcfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(app.NewStep(cfg), wcfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
