//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
)

// Host panel geometry, matching the 320x240 LCD of the reference board.
const (
	hostPanelWidth  = 320
	hostPanelHeight = 240
)

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	usb    *virtualUSB
	t      *hostTime
	flash  Flash
}

// New returns a host HAL implementation.
func New() HAL {
	return newHostHAL()
}

func newHostHAL() *hostHAL {
	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		fb:     newHostFramebuffer(hostPanelWidth, hostPanelHeight),
		usb:    newVirtualUSB(),
		t:      newHostTime(),
		flash:  newHostFlash(),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) USB() USBHost     { return h.usb }
func (h *hostHAL) Flash() Flash     { return h.flash }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
