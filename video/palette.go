package video

import "nesport/hal"

// RGB is one 24-bit palette entry.
type RGB struct {
	R, G, B uint8
}

// Palette is the emulator's color lookup table.
type Palette [256]RGB

// Table holds the native RGB565 word for every palette index.
type Table [256]uint16

// ConvertPalette packs every entry into RGB565 by truncating each channel
// to 5/6/5 bits.
func ConvertPalette(p *Palette) *Table {
	var t Table
	for i, c := range p {
		t[i] = hal.RGB565(c.R, c.G, c.B)
	}
	return &t
}
