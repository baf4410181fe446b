package video

import (
	"errors"
	"fmt"

	"nesport/hal"
)

var ErrNoFramebuffer = errors.New("no usable framebuffer")

// frameBuffer owns the emulator canvas inside the display framebuffer. The
// canvas has a fixed size and is centered on larger panels.
type frameBuffer struct {
	fb     hal.Framebuffer
	w, h   int
	ox, oy int
}

func newFrameBuffer(fb hal.Framebuffer, w, h int) (*frameBuffer, error) {
	if fb == nil {
		return nil, ErrNoFramebuffer
	}
	if fb.Format() != hal.PixelFormatRGB565 {
		return nil, fmt.Errorf("%w: pixel format %d", ErrNoFramebuffer, fb.Format())
	}
	pw, ph := fb.Width(), fb.Height()
	if w <= 0 || h <= 0 || pw < w || ph < h {
		return nil, fmt.Errorf("%w: panel %dx%d cannot hold %dx%d", ErrNoFramebuffer, pw, ph, w, h)
	}
	if len(fb.Buffer()) < fb.StrideBytes()*ph {
		return nil, fmt.Errorf("%w: buffer too small", ErrNoFramebuffer)
	}

	f := &frameBuffer{fb: fb, w: w, h: h, ox: (pw - w) / 2, oy: (ph - h) / 2}
	fb.Lock()
	fb.ClearRGB(0, 0, 0)
	err := fb.Present()
	fb.Unlock()
	if err != nil && !errors.Is(err, hal.ErrNotImplemented) {
		return nil, fmt.Errorf("present: %w", err)
	}
	return f, nil
}

func (f *frameBuffer) lock()   { f.fb.Lock() }
func (f *frameBuffer) unlock() { f.fb.Unlock() }

// row returns the canvas bytes of row y from column x for n pixels.
// Callers hold the lock.
func (f *frameBuffer) row(x, y, n int) []byte {
	off := (f.oy+y)*f.fb.StrideBytes() + (f.ox+x)*2
	return f.fb.Buffer()[off : off+n*2]
}

// fill sets every canvas pixel. Callers hold the lock.
func (f *frameBuffer) fill(pixel uint16) {
	lo, hi := byte(pixel), byte(pixel>>8)
	for y := 0; y < f.h; y++ {
		r := f.row(0, y, f.w)
		for i := 0; i < len(r); i += 2 {
			r[i] = lo
			r[i+1] = hi
		}
	}
}

// pixel reads one canvas pixel. Callers hold the lock.
func (f *frameBuffer) pixel(x, y int) uint16 {
	r := f.row(x, y, 1)
	return uint16(r[0]) | uint16(r[1])<<8
}

// present pushes the canvas to the display. Callers hold the lock.
func (f *frameBuffer) present() error {
	if err := f.fb.Present(); err != nil && !errors.Is(err, hal.ErrNotImplemented) {
		return err
	}
	return nil
}
