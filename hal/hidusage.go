package hal

// HID keyboard usage IDs used by the software report sources.
const (
	usageA         uint8 = 0x04
	usageEnter     uint8 = 0x28
	usageEscape    uint8 = 0x29
	usageBackspace uint8 = 0x2A
	usageTab       uint8 = 0x2B
	usageF1        uint8 = 0x3A
	usageF2        uint8 = 0x3B
	usageF3        uint8 = 0x3C
	usageHome      uint8 = 0x4A
	usageDelete    uint8 = 0x4C
	usageEnd       uint8 = 0x4D
	usageRight     uint8 = 0x4F
	usageLeft      uint8 = 0x50
	usageDown      uint8 = 0x51
	usageUp        uint8 = 0x52
)

// Boot keyboard modifier bits.
const (
	modLeftCtrl  uint8 = 1 << 0
	modLeftShift uint8 = 1 << 1
	modLeftAlt   uint8 = 1 << 2
)

// US layout, one entry per usage starting at usageA. Zero means no character.
const (
	usageLower = "abcdefghijklmnopqrstuvwxyz1234567890\r\x1b\b\t -=[]\\\x00;'`,./"
	usageUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ!@#$%^&*()\r\x1b\b\t _+{}|\x00:\"~<>?"
)

// usageForRune returns the usage and whether shift must be held to type r.
func usageForRune(r rune) (usage uint8, shift bool, ok bool) {
	if r <= 0 || r > 0x7F {
		return 0, false, false
	}
	c := byte(r)
	for i := 0; i < len(usageLower); i++ {
		if usageLower[i] == c {
			return usageA + uint8(i), false, true
		}
	}
	for i := 0; i < len(usageUpper); i++ {
		if usageUpper[i] == c {
			return usageA + uint8(i), true, true
		}
	}
	return 0, false, false
}

// usageForKey maps a navigation key to its usage.
func usageForKey(code KeyCode) (uint8, bool) {
	switch code {
	case KeyUp:
		return usageUp, true
	case KeyDown:
		return usageDown, true
	case KeyLeft:
		return usageLeft, true
	case KeyRight:
		return usageRight, true
	case KeyEnter:
		return usageEnter, true
	case KeyEscape:
		return usageEscape, true
	case KeyBackspace:
		return usageBackspace, true
	case KeyNext, KeyPrev:
		return usageTab, true
	case KeyDelete:
		return usageDelete, true
	case KeyHome:
		return usageHome, true
	case KeyEnd:
		return usageEnd, true
	case KeyF1:
		return usageF1, true
	case KeyF2:
		return usageF2, true
	case KeyF3:
		return usageF3, true
	default:
		return 0, false
	}
}

// bootKeyboardReport builds an 8-byte boot keyboard report. Extra codes
// beyond the six slots are ignored.
func bootKeyboardReport(mod uint8, codes []uint8) []byte {
	r := make([]byte, 8)
	r[0] = mod
	n := 0
	for _, c := range codes {
		if c == 0 || n == 6 {
			continue
		}
		r[2+n] = c
		n++
	}
	return r
}

// keyStroke is one press-then-release of a single key.
type keyStroke struct {
	usage uint8
	mod   uint8
}

// terminalStrokes decodes raw terminal bytes into key strokes. Arrow keys
// arrive as ESC [ A..D; a lone ESC is the escape key.
func terminalStrokes(buf []byte) []keyStroke {
	var out []keyStroke
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == 0x1B && i+2 < len(buf) && buf[i+1] == '[':
			var u uint8
			switch buf[i+2] {
			case 'A':
				u = usageUp
			case 'B':
				u = usageDown
			case 'C':
				u = usageRight
			case 'D':
				u = usageLeft
			case 'H':
				u = usageHome
			case 'F':
				u = usageEnd
			}
			i += 2
			if u != 0 {
				out = append(out, keyStroke{usage: u})
			}
		case b == 0x7F:
			out = append(out, keyStroke{usage: usageBackspace})
		case b == '\n':
			out = append(out, keyStroke{usage: usageEnter})
		case b >= 0x01 && b <= 0x1A && b != '\r' && b != '\t' && b != '\b':
			// Ctrl+letter.
			out = append(out, keyStroke{usage: usageA + b - 1, mod: modLeftCtrl})
		default:
			u, shift, ok := usageForRune(rune(b))
			if !ok {
				continue
			}
			var mod uint8
			if shift {
				mod = modLeftShift
			}
			out = append(out, keyStroke{usage: u, mod: mod})
		}
	}
	return out
}
