package hal

import (
	"errors"
	"sync"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb, stored little-endian.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a pixel buffer shared with the display refresh path.
//
// Lock/Unlock is the display lock. Writers hold it while touching Buffer and
// calling ClearRGB or Present; the refresh path holds it while reading.
type Framebuffer interface {
	sync.Locker
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	// Present marks the buffer for redraw (or pushes it to the panel).
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyNext
	KeyPrev
	KeyDelete
	KeyHome
	KeyEnd
	KeyF1
	KeyF2
	KeyF3
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// HIDHandle identifies an attached HID interface for the lifetime of one connection.
type HIDHandle uint32

// HIDEventKind is a device lifecycle notification from the USB host stack.
type HIDEventKind uint8

const (
	HIDConnected HIDEventKind = iota + 1
	HIDDisconnected
	HIDTransferError
)

func (k HIDEventKind) String() string {
	switch k {
	case HIDConnected:
		return "connected"
	case HIDDisconnected:
		return "disconnected"
	case HIDTransferError:
		return "transfer error"
	default:
		return "unknown"
	}
}

// HID interface subclass and protocol codes (bInterfaceSubClass / bInterfaceProtocol).
const (
	HIDSubclassNone uint8 = 0x00
	HIDSubclassBoot uint8 = 0x01

	HIDProtocolNone     uint8 = 0x00
	HIDProtocolKeyboard uint8 = 0x01
	HIDProtocolMouse    uint8 = 0x02
)

// HIDEvent is a connect, disconnect or transfer-error notification.
type HIDEvent struct {
	Kind     HIDEventKind
	Handle   HIDHandle
	SubClass uint8
	Protocol uint8
}

// USBHost is the HID side of a USB host stack.
type USBHost interface {
	// Attach installs the transport callbacks. Both run on the transport's
	// own context and must not block. Devices already present are announced
	// through onEvent before Attach returns.
	Attach(onEvent func(HIDEvent), onReport func(HIDHandle, []byte))
	Open(h HIDHandle) error
	SetBootProtocol(h HIDHandle) error
	// Start begins input report delivery for an open device.
	Start(h HIDHandle) error
	// Close stops report delivery and releases the device. Closing an
	// already-gone device is not an error.
	Close(h HIDHandle) error
}

// Flash provides raw access to non-volatile memory.
//
// It is intentionally low-level: addresses and erase blocks only.
type Flash interface {
	SizeBytes() uint32
	EraseBlockBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
	WriteAt(p []byte, off uint32) (int, error)
	Erase(off, size uint32) error
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined (1ms on all current platforms).
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the emulator host and the outside world.
type HAL interface {
	Logger() Logger
	Display() Display
	USB() USBHost
	Flash() Flash
	Time() Time
}
