package input

import (
	"nesport/hal"
	"nesport/hid"
)

// KeypadButton maps a keyboard key event onto a controller button: arrows
// are the pad, Enter is start, Tab is select, Z is cross (B) and X is
// circle (A).
func KeypadButton(ev hal.KeyEvent) (hid.Buttons, bool) {
	switch ev.Code {
	case hal.KeyUp:
		return hid.ButtonUp, true
	case hal.KeyDown:
		return hid.ButtonDown, true
	case hal.KeyLeft:
		return hid.ButtonLeft, true
	case hal.KeyRight:
		return hid.ButtonRight, true
	case hal.KeyEnter:
		return hid.ButtonStart, true
	case hal.KeyNext, hal.KeyPrev:
		return hid.ButtonSelect, true
	}
	switch ev.Rune {
	case 'z', 'Z':
		return hid.ButtonCross, true
	case 'x', 'X':
		return hid.ButtonCircle, true
	}
	return 0, false
}

// KeypadButtons maps the keys held in one keyboard report onto a button
// mask. Keys sharing a button keep it held until the last one is up.
func KeypadButtons(keys []hid.Key) hid.Buttons {
	var held hid.Buttons
	for _, k := range keys {
		if b, ok := KeypadButton(hal.KeyEvent{Code: k.Code, Rune: k.Rune, Press: true}); ok {
			held |= b
		}
	}
	return held
}
