package app

import (
	"errors"
	"image/color"
	"strings"
	"unicode/utf8"

	"nesport/hal"
	"nesport/internal/buildinfo"
	"nesport/rom"
	"nesport/video"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	diagLineH   = 12
	diagMarginX = 4
)

var (
	diagBG    = color.RGBA{R: 0x00, G: 0x00, B: 0x60, A: 0xff}
	diagFG    = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	diagTitle = color.RGBA{R: 0xff, G: 0xdd, B: 0x66, A: 0xff}
)

// diagnose turns a fatal error into the lines shown on screen.
func diagnose(err error) (title string, lines []string) {
	switch {
	case errors.Is(err, video.ErrNoFramebuffer):
		title = "display unavailable"
	case errors.Is(err, rom.ErrNoROM):
		title = "no cartridge"
		lines = append(lines, "write one into the flash image", "with cmd/mkflash -rom FILE")
	case errors.Is(err, rom.ErrBadHeader):
		title = "bad cartridge"
	case errors.Is(err, ErrCorePanic):
		title = "core panic"
	default:
		title = "fatal error"
	}
	return title, append([]string{err.Error()}, lines...)
}

// ShowDiagnostic logs err and, when the display has a framebuffer, paints a
// text screen describing it.
func ShowDiagnostic(h hal.HAL, err error) {
	title, lines := diagnose(err)
	if l := h.Logger(); l != nil {
		l.WriteLineString("nesport: " + title + ": " + err.Error())
	}

	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 || fb.Buffer() == nil {
		return
	}

	fb.Lock()
	defer fb.Unlock()
	fb.ClearRGB(diagBG.R, diagBG.G, diagBG.B)

	d := fbDisplay{fb: fb}
	font := &proggy.TinySZ8pt7b
	_, outbox := tinyfont.LineWidth(font, "0")
	cols := 1
	if outbox > 0 {
		cols = max(1, (fb.Width()-2*diagMarginX)/int(outbox))
	}

	y := diagLineH
	tinyfont.WriteLine(d, font, diagMarginX, int16(y), "nesport "+buildinfo.Short(), diagFG)
	y += diagLineH * 2
	tinyfont.WriteLine(d, font, diagMarginX, int16(y), title, diagTitle)
	y += diagLineH

	for _, line := range lines {
		for len(line) > 0 {
			if y+diagLineH > fb.Height() {
				break
			}
			chunk, rest := takeRunes(line, cols)
			y += diagLineH
			tinyfont.WriteLine(d, font, diagMarginX, int16(y), chunk, diagFG)
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = fb.Present()
}

// fbDisplay lets tinyfont draw straight into an RGB565 framebuffer. Callers
// hold the display lock.
type fbDisplay struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = fbDisplay{}

func (d fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	buf := d.fb.Buffer()
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	pixel := hal.RGB565(c.R, c.G, c.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d fbDisplay) Display() error { return nil }

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
