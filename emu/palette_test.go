package emu

import (
	"testing"

	"nesport/video"
)

func TestNESPaletteEntries(t *testing.T) {
	cases := []struct {
		index int
		want  video.RGB
	}{
		{0x00, video.RGB{R: 84, G: 84, B: 84}},
		{0x0f, video.RGB{}},
		{0x16, video.RGB{R: 152, G: 34, B: 32}},
		{0x2a, video.RGB{R: 76, G: 208, B: 32}},
		{0x30, video.RGB{R: 236, G: 238, B: 236}},
		{0x3f, video.RGB{}},
	}
	for _, c := range cases {
		if got := NES[c.index]; got != c.want {
			t.Fatalf("NES[%#02x] = %+v, want %+v", c.index, got, c.want)
		}
	}
}

func TestNESPaletteRepeats(t *testing.T) {
	p := NESPalette()
	for i := range p {
		if p[i] != NES[i%len(NES)] {
			t.Fatalf("entry %d = %+v, want %+v", i, p[i], NES[i%len(NES)])
		}
	}
}
