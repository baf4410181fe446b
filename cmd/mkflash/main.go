//go:build !tinygo

// Command mkflash writes a cartridge image into the host flash image read by
// nesport at startup.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"

	"nesport/hal"
	"nesport/rom"
)

const defaultFlashSize = 4 * 1024 * 1024

func main() {
	var romPath string
	var outPath string
	var flashSize uint
	var offset uint
	flag.StringVar(&romPath, "rom", "", "Cartridge file (.nes, .zip, .gz, .7z, .rar).")
	flag.StringVar(&outPath, "out", defaultOut(), "Flash image path.")
	flag.UintVar(&flashSize, "size", defaultFlashSize, "Flash image size for new images (bytes).")
	flag.UintVar(&offset, "offset", rom.DefaultFlashOffset, "Partition offset (bytes).")
	flag.Parse()

	if romPath == "" {
		fmt.Fprintln(os.Stderr, "error: -rom is required")
		os.Exit(2)
	}
	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}

	if err := run(romPath, outPath, uint32(flashSize), uint32(offset)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultOut() string {
	if p := os.Getenv(hal.FlashPathEnv); p != "" {
		return p
	}
	return "nesport.flash"
}

func run(romPath, outPath string, flashSize, offset uint32) error {
	img, name, err := rom.Load(romPath)
	if err != nil {
		return err
	}
	h, err := rom.Parse(img)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	img = img[:h.ImageLen()]

	f, err := hal.OpenFlashFile(outPath, flashSize)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := rom.WriteFlash(f, offset, img); err != nil {
		return err
	}

	got, err := rom.FlashSource{Flash: f, Offset: offset}.ROM()
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !bytes.Equal(got, img) {
		return errors.New("verify: image mismatch after write")
	}

	fmt.Printf("%s: %s, %d bytes at %#x in %s\n", name, h, len(img), offset, outPath)
	return nil
}
