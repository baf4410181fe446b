//go:build !tinygo

package hal

import (
	"sync"
	"sync/atomic"
)

type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte

	// presented counts Present calls; the window redraws when it moves.
	presented atomic.Uint64
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	stride := width * 2
	return &hostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
}

func (f *hostFramebuffer) Lock()               { f.mu.Lock() }
func (f *hostFramebuffer) Unlock()             { f.mu.Unlock() }
func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.stride }
func (f *hostFramebuffer) Buffer() []byte      { return f.buf }

func (f *hostFramebuffer) Present() error {
	f.presented.Add(1)
	return nil
}

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	fillRGB565(f.buf, RGB565(r, g, b))
}

// snapshotRGB565 copies the buffer if it was presented since seq and returns
// the new sequence.
func (f *hostFramebuffer) snapshotRGB565(dst []byte, seq uint64) (uint64, bool) {
	cur := f.presented.Load()
	if cur == seq && seq != 0 {
		return seq, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
	return cur, true
}
