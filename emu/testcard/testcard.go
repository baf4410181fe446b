// Package testcard is a demo core. It draws the master palette, a cursor
// steered by the controllers and the loaded cartridge's header.
package testcard

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"nesport/emu"
	"nesport/hal"
	"nesport/hid"
	"nesport/input"
	"nesport/rom"
	"nesport/video"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	Width  = 256
	Height = 240

	refreshHz = 60

	barW     = Width / 16
	barH     = 40
	barsH    = 4 * barH
	cursorSz = 8
	stepPx   = 2

	inkBlack uint8 = 0x0f
	inkWhite uint8 = 0x30
	inkGrey  uint8 = 0x10
	inkRed   uint8 = 0x16
	inkGreen uint8 = 0x2a
)

var errNotBooted = errors.New("testcard: not booted")

// Card is the demo core.
type Card struct {
	log hal.Logger
	vid video.Driver
	hdr rom.Header

	mu     sync.Mutex
	held   [hid.MaxSlots]uint16
	paused bool
	shift  int
	x, y   int
	frame  uint64

	full []video.Rect
}

var _ emu.Core = (*Card)(nil)

// New returns a card that logs through log (may be nil).
func New(log hal.Logger) *Card {
	return &Card{
		log:  log,
		x:    (Width - cursorSz) / 2,
		y:    (barsH - cursorSz) / 2,
		full: []video.Rect{{W: Width, H: Height}},
	}
}

func (c *Card) Name() string   { return "testcard" }
func (c *Card) RefreshHz() int { return refreshHz }

func (c *Card) logf(format string, args ...any) {
	if c.log == nil {
		return
	}
	c.log.WriteLineString("testcard: " + fmt.Sprintf(format, args...))
}

func (c *Card) Boot(img []byte, vid video.Driver) error {
	h, err := rom.Parse(img)
	if err != nil {
		return err
	}
	if err := vid.Init(Width, Height); err != nil {
		return fmt.Errorf("testcard: video init: %w", err)
	}
	if err := vid.SetMode(Width, Height); err != nil {
		return fmt.Errorf("testcard: video mode: %w", err)
	}
	vid.SetPalette(emu.NESPalette())
	if err := vid.Clear(inkBlack); err != nil {
		return fmt.Errorf("testcard: clear: %w", err)
	}

	c.mu.Lock()
	c.vid = vid
	c.hdr = h
	c.mu.Unlock()
	c.logf("booted %s", h)
	return nil
}

// Inputs returns the handlers for slot. Start pauses, select rotates the
// bars and the pad steers the cursor.
func (c *Card) Inputs(slot int) input.Sink {
	t := input.HandlerTable{}
	for id := input.Select; id <= input.A; id++ {
		id := id
		t[id] = func(tr input.Transition) { c.press(slot, id, tr) }
	}
	return t
}

func (c *Card) press(slot int, id input.ID, tr input.Transition) {
	if slot < 0 || slot >= hid.MaxSlots {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bit := uint16(1) << id
	if tr == input.Released {
		c.held[slot] &^= bit
		return
	}
	c.held[slot] |= bit
	switch id {
	case input.Start:
		c.paused = !c.paused
	case input.Select:
		c.shift = (c.shift + 1) % 16
	}
}

// Held reports whether id is down on slot.
func (c *Card) Held(slot int, id input.ID) bool {
	if slot < 0 || slot >= hid.MaxSlots {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held[slot]&(1<<id) != 0
}

// Cursor returns the cursor's top-left corner.
func (c *Card) Cursor() (x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.x, c.y
}

func (c *Card) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Card) Frame() error {
	c.mu.Lock()
	vid := c.vid
	if vid == nil {
		c.mu.Unlock()
		return errNotBooted
	}
	var all uint16
	for _, h := range c.held {
		all |= h
	}
	if !c.paused {
		c.frame++
		c.step(all)
	}
	st := state{hdr: c.hdr, held: c.held, shift: c.shift, x: c.x, y: c.y, frame: c.frame, paused: c.paused, all: all}
	c.mu.Unlock()

	bmp := vid.LockWrite()
	if bmp == nil {
		return video.ErrShutdown
	}
	draw(bmp, st)
	err := vid.CustomBlit(bmp, c.full)
	vid.FreeWrite(c.full)
	return err
}

// step moves the cursor. Callers hold c.mu.
func (c *Card) step(held uint16) {
	if held&(1<<input.Left) != 0 {
		c.x -= stepPx
	}
	if held&(1<<input.Right) != 0 {
		c.x += stepPx
	}
	if held&(1<<input.Up) != 0 {
		c.y -= stepPx
	}
	if held&(1<<input.Down) != 0 {
		c.y += stepPx
	}
	c.x = wrap(c.x, Width-cursorSz)
	c.y = wrap(c.y, barsH-cursorSz)
}

func wrap(v, n int) int {
	switch {
	case v < 0:
		return n
	case v > n:
		return 0
	}
	return v
}

type state struct {
	hdr    rom.Header
	held   [hid.MaxSlots]uint16
	all    uint16
	shift  int
	x, y   int
	frame  uint64
	paused bool
}

func draw(bmp *video.Bitmap, st state) {
	for y := 0; y < bmp.Height; y++ {
		row := bmp.Pix[y*bmp.Pitch : y*bmp.Pitch+bmp.Width]
		if y >= barsH {
			for x := range row {
				row[x] = inkBlack
			}
			continue
		}
		band := uint8(y/barH) * 16
		for x := range row {
			row[x] = band + uint8((x/barW+st.shift)%16)
		}
	}

	ink := inkWhite
	switch {
	case st.all&(1<<input.B) != 0:
		ink = inkRed
	case st.all&(1<<input.A) != 0:
		ink = inkGreen
	}
	for y := st.y; y < st.y+cursorSz; y++ {
		for x := st.x; x < st.x+cursorSz; x++ {
			bmp.Set(x, y, ink)
		}
	}

	d := &indexDisplay{bmp: bmp}
	line := barsH + 14
	d.text(4, line, inkWhite, st.hdr.String())
	line += 12
	status := fmt.Sprintf("frame %d", st.frame)
	if st.paused {
		status += " (paused)"
	}
	d.text(4, line, inkGrey, status)
	for slot, h := range st.held {
		if h == 0 {
			continue
		}
		line += 12
		d.text(4, line, inkWhite, fmt.Sprintf("P%d %s", slot+1, heldNames(h)))
	}
}

func heldNames(h uint16) string {
	var names []string
	for id := input.Select; id <= input.A; id++ {
		if h&(1<<id) != 0 {
			names = append(names, id.String())
		}
	}
	return strings.Join(names, "+")
}

// indexDisplay lets tinyfont draw into an indexed bitmap with one ink.
type indexDisplay struct {
	bmp *video.Bitmap
	ink uint8
}

var _ drivers.Displayer = (*indexDisplay)(nil)

func (d *indexDisplay) Size() (x, y int16) {
	return int16(d.bmp.Width), int16(d.bmp.Height)
}

func (d *indexDisplay) SetPixel(x, y int16, _ color.RGBA) {
	d.bmp.Set(int(x), int(y), d.ink)
}

func (d *indexDisplay) Display() error { return nil }

func (d *indexDisplay) text(x, y int, ink uint8, s string) {
	d.ink = ink
	p := emu.NES[ink%64]
	tinyfont.WriteLine(d, &proggy.TinySZ8pt7b, int16(x), int16(y), s, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff})
}
