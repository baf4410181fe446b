package hid

import "nesport/hal"

// Boot keyboard modifier bits.
const (
	ModLeftCtrl   uint8 = 1 << 0
	ModLeftShift  uint8 = 1 << 1
	ModLeftAlt    uint8 = 1 << 2
	ModLeftGUI    uint8 = 1 << 3
	ModRightCtrl  uint8 = 1 << 4
	ModRightShift uint8 = 1 << 5
	ModRightAlt   uint8 = 1 << 6
	ModRightGUI   uint8 = 1 << 7
)

// KeyboardReportLen is the size of a boot keyboard report.
const KeyboardReportLen = 8

const (
	keyTab         uint8 = 0x2B
	keyEnter       uint8 = 0x28
	keyEscape      uint8 = 0x29
	keyBackspace   uint8 = 0x2A
	keyF1          uint8 = 0x3A
	keyF2          uint8 = 0x3B
	keyF3          uint8 = 0x3C
	keyHome        uint8 = 0x4A
	keyDelete      uint8 = 0x4C
	keyEnd         uint8 = 0x4D
	keyRight       uint8 = 0x4F
	keyLeft        uint8 = 0x50
	keyDown        uint8 = 0x51
	keyUp          uint8 = 0x52
	keyKeypadEnter uint8 = 0x58

	keyFirstChar uint8 = 0x04
)

// keyChars maps usage codes from keyFirstChar to characters, indexed by
// [code][shift]. Zero entries have no character.
var keyChars = [...][2]rune{
	{'a', 'A'},   // 0x04
	{'b', 'B'},   // 0x05
	{'c', 'C'},   // 0x06
	{'d', 'D'},   // 0x07
	{'e', 'E'},   // 0x08
	{'f', 'F'},   // 0x09
	{'g', 'G'},   // 0x0a
	{'h', 'H'},   // 0x0b
	{'i', 'I'},   // 0x0c
	{'j', 'J'},   // 0x0d
	{'k', 'K'},   // 0x0e
	{'l', 'L'},   // 0x0f
	{'m', 'M'},   // 0x10
	{'n', 'N'},   // 0x11
	{'o', 'O'},   // 0x12
	{'p', 'P'},   // 0x13
	{'q', 'Q'},   // 0x14
	{'r', 'R'},   // 0x15
	{'s', 'S'},   // 0x16
	{'t', 'T'},   // 0x17
	{'u', 'U'},   // 0x18
	{'v', 'V'},   // 0x19
	{'w', 'W'},   // 0x1a
	{'x', 'X'},   // 0x1b
	{'y', 'Y'},   // 0x1c
	{'z', 'Z'},   // 0x1d
	{'1', '!'},   // 0x1e
	{'2', '@'},   // 0x1f
	{'3', '#'},   // 0x20
	{'4', '$'},   // 0x21
	{'5', '%'},   // 0x22
	{'6', '^'},   // 0x23
	{'7', '&'},   // 0x24
	{'8', '*'},   // 0x25
	{'9', '('},   // 0x26
	{'0', ')'},   // 0x27
	{'\r', '\r'}, // 0x28
	{0, 0},       // 0x29
	{0, 0},       // 0x2a
	{0, 0},       // 0x2b
	{' ', ' '},   // 0x2c
	{'-', '_'},   // 0x2d
	{'=', '+'},   // 0x2e
	{'[', '{'},   // 0x2f
	{']', '}'},   // 0x30
	{'\\', '|'},  // 0x31
	{0, 0},       // 0x32
	{';', ':'},   // 0x33
	{'\'', '"'},  // 0x34
	{'`', '~'},   // 0x35
	{',', '<'},   // 0x36
	{'.', '>'},   // 0x37
	{'/', '?'},   // 0x38
}

// Key is one decoded key slot.
type Key struct {
	Usage uint8
	Code  hal.KeyCode
	Rune  rune
}

// KeyboardReport is a decoded boot keyboard report.
type KeyboardReport struct {
	Modifiers uint8
	// Keys holds the recognized keys in slot order.
	Keys []Key
	// Pressed is false when slot 0 is empty, i.e. every key is up.
	Pressed bool
}

// Shift reports whether either shift key is held.
func (r KeyboardReport) Shift() bool {
	return r.Modifiers&(ModLeftShift|ModRightShift) != 0
}

// DecodeKey translates one usage code. Navigation and editing keys map to a
// hal.KeyCode (tab is KeyNext, or KeyPrev with shift); other codes go through
// the character table. Enter yields both KeyEnter and '\r'.
func DecodeKey(code uint8, shift bool) (Key, bool) {
	k := Key{Usage: code}
	switch code {
	case keyTab:
		k.Code = hal.KeyNext
		if shift {
			k.Code = hal.KeyPrev
		}
	case keyEnter, keyKeypadEnter:
		k.Code = hal.KeyEnter
		k.Rune = '\r'
	case keyEscape:
		k.Code = hal.KeyEscape
	case keyBackspace:
		k.Code = hal.KeyBackspace
	case keyUp:
		k.Code = hal.KeyUp
	case keyDown:
		k.Code = hal.KeyDown
	case keyLeft:
		k.Code = hal.KeyLeft
	case keyRight:
		k.Code = hal.KeyRight
	case keyDelete:
		k.Code = hal.KeyDelete
	case keyHome:
		k.Code = hal.KeyHome
	case keyEnd:
		k.Code = hal.KeyEnd
	case keyF1:
		k.Code = hal.KeyF1
	case keyF2:
		k.Code = hal.KeyF2
	case keyF3:
		k.Code = hal.KeyF3
	default:
		if code < keyFirstChar || int(code-keyFirstChar) >= len(keyChars) {
			return Key{}, false
		}
		s := 0
		if shift {
			s = 1
		}
		k.Rune = keyChars[code-keyFirstChar][s]
		if k.Rune == 0 {
			return Key{}, false
		}
	}
	return k, true
}

// DecodeKeyboard decodes a boot keyboard report. Reports shorter than
// KeyboardReportLen are rejected. Unrecognized codes are left out of Keys.
func DecodeKeyboard(b []byte) (KeyboardReport, bool) {
	if len(b) < KeyboardReportLen {
		return KeyboardReport{}, false
	}
	r := KeyboardReport{Modifiers: b[0], Pressed: b[2] != 0}
	for _, code := range b[2:KeyboardReportLen] {
		if code == 0 {
			continue
		}
		if k, ok := DecodeKey(code, r.Shift()); ok {
			r.Keys = append(r.Keys, k)
		}
	}
	return r, true
}

// keyboardState remembers the previous report's keys so that boot reports,
// which only list what is held, can be turned into press/release events.
type keyboardState struct {
	held []Key
}

func (s *keyboardState) update(r KeyboardReport) []hal.KeyEvent {
	var evs []hal.KeyEvent
	for _, old := range s.held {
		if !hasUsage(r.Keys, old.Usage) {
			evs = append(evs, hal.KeyEvent{Code: old.Code, Rune: old.Rune, Press: false})
		}
	}
	for _, k := range r.Keys {
		if !hasUsage(s.held, k.Usage) {
			evs = append(evs, hal.KeyEvent{Code: k.Code, Rune: k.Rune, Press: true})
		}
	}
	s.held = append(s.held[:0], r.Keys...)
	return evs
}

// release emits a release for every held key and forgets them.
func (s *keyboardState) release() []hal.KeyEvent {
	return s.update(KeyboardReport{})
}

func hasUsage(keys []Key, usage uint8) bool {
	for _, k := range keys {
		if k.Usage == usage {
			return true
		}
	}
	return false
}
