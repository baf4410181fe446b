//go:build !tinygo && cgo

package hal

import (
	"bytes"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Generic gamepad report layout produced for standard-layout pads.
const (
	padSelect   uint8 = 1 << 0
	padStart    uint8 = 1 << 1
	padUp       uint8 = 1 << 2
	padRight    uint8 = 1 << 3
	padDown     uint8 = 1 << 4
	padLeft     uint8 = 1 << 5
	padTriangle uint8 = 1 << 4
	padCircle   uint8 = 1 << 5
	padCross    uint8 = 1 << 6
	padSquare   uint8 = 1 << 7
)

var padByte2 = []struct {
	btn ebiten.StandardGamepadButton
	bit uint8
}{
	{ebiten.StandardGamepadButtonCenterLeft, padSelect},
	{ebiten.StandardGamepadButtonCenterRight, padStart},
	{ebiten.StandardGamepadButtonLeftTop, padUp},
	{ebiten.StandardGamepadButtonLeftRight, padRight},
	{ebiten.StandardGamepadButtonLeftBottom, padDown},
	{ebiten.StandardGamepadButtonLeftLeft, padLeft},
}

var padByte3 = []struct {
	btn ebiten.StandardGamepadButton
	bit uint8
}{
	{ebiten.StandardGamepadButtonRightTop, padTriangle},
	{ebiten.StandardGamepadButtonRightRight, padCircle},
	{ebiten.StandardGamepadButtonRightBottom, padCross},
	{ebiten.StandardGamepadButtonRightLeft, padSquare},
}

var hostKeyUsage = map[ebiten.Key]uint8{
	ebiten.KeyArrowUp:      usageUp,
	ebiten.KeyArrowDown:    usageDown,
	ebiten.KeyArrowLeft:    usageLeft,
	ebiten.KeyArrowRight:   usageRight,
	ebiten.KeyEnter:        usageEnter,
	ebiten.KeyEscape:       usageEscape,
	ebiten.KeyBackspace:    usageBackspace,
	ebiten.KeyTab:          usageTab,
	ebiten.KeyDelete:       usageDelete,
	ebiten.KeyHome:         usageHome,
	ebiten.KeyEnd:          usageEnd,
	ebiten.KeyF1:           usageF1,
	ebiten.KeyF2:           usageF2,
	ebiten.KeyF3:           usageF3,
	ebiten.KeySpace:        0x2C,
	ebiten.KeyMinus:        0x2D,
	ebiten.KeyEqual:        0x2E,
	ebiten.KeyBracketLeft:  0x2F,
	ebiten.KeyBracketRight: 0x30,
	ebiten.KeyBackslash:    0x31,
	ebiten.KeySemicolon:    0x33,
	ebiten.KeyQuote:        0x34,
	ebiten.KeyBackquote:    0x35,
	ebiten.KeyComma:        0x36,
	ebiten.KeyPeriod:       0x37,
	ebiten.KeySlash:        0x38,
}

func init() {
	letters := []ebiten.Key{
		ebiten.KeyA, ebiten.KeyB, ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF,
		ebiten.KeyG, ebiten.KeyH, ebiten.KeyI, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL,
		ebiten.KeyM, ebiten.KeyN, ebiten.KeyO, ebiten.KeyP, ebiten.KeyQ, ebiten.KeyR,
		ebiten.KeyS, ebiten.KeyT, ebiten.KeyU, ebiten.KeyV, ebiten.KeyW, ebiten.KeyX,
		ebiten.KeyY, ebiten.KeyZ,
	}
	for i, k := range letters {
		hostKeyUsage[k] = usageA + uint8(i)
	}
	digits := []ebiten.Key{
		ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4, ebiten.KeyDigit5,
		ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9, ebiten.KeyDigit0,
	}
	for i, k := range digits {
		hostKeyUsage[k] = 0x1E + uint8(i)
	}
}

// hostInput turns ebiten input state into HID devices on a virtual USB host.
// The keyboard and mouse are plugged in for the whole session; gamepads come
// and go with the host.
type hostInput struct {
	usb *virtualUSB

	kbd     HIDHandle
	lastKbd []byte
	keys    []ebiten.Key

	mouse      HIDHandle
	mx, my     int
	lastButton bool

	pads    map[ebiten.GamepadID]HIDHandle
	lastPad map[ebiten.GamepadID][4]byte
	padIDs  []ebiten.GamepadID
}

func newHostInput(usb *virtualUSB) *hostInput {
	return &hostInput{
		usb:     usb,
		kbd:     usb.connect(HIDSubclassBoot, HIDProtocolKeyboard),
		lastKbd: make([]byte, 8),
		mouse:   usb.connect(HIDSubclassBoot, HIDProtocolMouse),
		pads:    make(map[ebiten.GamepadID]HIDHandle),
		lastPad: make(map[ebiten.GamepadID][4]byte),
	}
}

func (in *hostInput) poll() {
	in.pollKeyboard()
	in.pollMouse()
	in.pollGamepads()
}

func (in *hostInput) pollKeyboard() {
	in.keys = inpututil.AppendPressedKeys(in.keys[:0])

	var mod uint8
	codes := make([]uint8, 0, 6)
	for _, k := range in.keys {
		switch k {
		case ebiten.KeyShiftLeft, ebiten.KeyShiftRight:
			mod |= modLeftShift
			continue
		case ebiten.KeyControlLeft, ebiten.KeyControlRight:
			mod |= modLeftCtrl
			continue
		case ebiten.KeyAltLeft, ebiten.KeyAltRight:
			mod |= modLeftAlt
			continue
		}
		if u, ok := hostKeyUsage[k]; ok {
			codes = append(codes, u)
		}
	}

	r := bootKeyboardReport(mod, codes)
	if bytes.Equal(r, in.lastKbd) {
		return
	}
	if in.usb.report(in.kbd, r) {
		in.lastKbd = r
	}
}

func (in *hostInput) pollMouse() {
	x, y := ebiten.CursorPosition()
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	dx, dy := clampInt8(x-in.mx), clampInt8(y-in.my)
	if dx == 0 && dy == 0 && pressed == in.lastButton {
		return
	}

	var buttons uint8
	if pressed {
		buttons = 1
	}
	if in.usb.report(in.mouse, []byte{buttons, byte(dx), byte(dy)}) {
		in.mx += int(dx)
		in.my += int(dy)
		in.lastButton = pressed
	}
}

func (in *hostInput) pollGamepads() {
	in.padIDs = inpututil.AppendJustConnectedGamepadIDs(in.padIDs[:0])
	for _, id := range in.padIDs {
		if _, ok := in.pads[id]; ok {
			continue
		}
		in.pads[id] = in.usb.connect(HIDSubclassNone, HIDProtocolNone)
	}

	for id, h := range in.pads {
		if inpututil.IsGamepadJustDisconnected(id) {
			in.usb.disconnect(h)
			delete(in.pads, id)
			delete(in.lastPad, id)
			continue
		}
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}

		var r [4]byte
		for _, b := range padByte2 {
			if ebiten.IsStandardGamepadButtonPressed(id, b.btn) {
				r[2] |= b.bit
			}
		}
		for _, b := range padByte3 {
			if ebiten.IsStandardGamepadButtonPressed(id, b.btn) {
				r[3] |= b.bit
			}
		}
		if prev, ok := in.lastPad[id]; ok && prev == r {
			continue
		}
		if in.usb.report(h, r[:]) {
			in.lastPad[id] = r
		}
	}
}

func clampInt8(v int) int8 {
	switch {
	case v > 127:
		return 127
	case v < -128:
		return -128
	default:
		return int8(v)
	}
}
