//go:build tinygo && baremetal && picocalc

package hal

import (
	"fmt"
	"machine"
	"time"
)

const (
	picoCalcKbdAddr uint16 = 0x1F
	picoCalcKbdCmd         = 0x09
)

const (
	picoCalcKeyAlt       byte = 0xA1
	picoCalcKeyBackspace byte = 0x08
	picoCalcKeyCtrl      byte = 0xA5
	picoCalcKeyDel       byte = 0xD4
	picoCalcKeyEnd       byte = 0xD5
	picoCalcKeyEsc       byte = 0xB1
	picoCalcKeyF1        byte = 0x81
	picoCalcKeyF2        byte = 0x82
	picoCalcKeyF3        byte = 0x83
	picoCalcKeyHome      byte = 0xD2
	picoCalcKeyIns       byte = 0xD1
	picoCalcKeyLeft      byte = 0xB4
	picoCalcKeyRight     byte = 0xB7
	picoCalcKeyUp        byte = 0xB5
	picoCalcKeyDown      byte = 0xB6
	picoCalcKeyShift     byte = 0xA2
	picoCalcKeyShiftR    byte = 0xA3
)

type i2cKeyboard struct {
	i2c   *machine.I2C
	write [1]byte
	read  [2]byte

	altDown   bool
	ctrlDown  bool
	shiftDown bool
}

func initI2CKeyboard() (*i2cKeyboard, error) {
	write := [1]byte{picoCalcKbdCmd}

	// Prefer I2C1 (original PicoCalc wiring), but some TinyGo targets expose only I2C0.
	for _, bus := range []*machine.I2C{machine.I2C1, machine.I2C0} {
		if bus == nil {
			continue
		}
		for _, freq := range []uint32{100_000, 400_000} {
			if err := bus.Configure(machine.I2CConfig{
				SCL:       machine.GP7,
				SDA:       machine.GP6,
				Frequency: freq,
			}); err != nil {
				continue
			}

			k := &i2cKeyboard{i2c: bus, write: write}

			// Probe the device to ensure the selected I2C instance works.
			// On boot the keyboard MCU can be slow to respond, so retry briefly.
			const probeTries = 50
			for i := 0; i < probeTries; i++ {
				if err := k.i2c.Tx(picoCalcKbdAddr, k.write[:], k.read[:]); err == nil {
					return k, nil
				}
				time.Sleep(10 * time.Millisecond)
			}
		}
	}

	return nil, fmt.Errorf("keyboard: I2C unavailable")
}

// readUsage returns the next key transition as a HID usage plus the current
// modifier byte.
func (k *i2cKeyboard) readUsage() (usage, mod uint8, press, ok bool) {
	if err := k.i2c.Tx(picoCalcKbdAddr, k.write[:], k.read[:]); err != nil {
		return 0, 0, false, false
	}
	state, code := k.read[0], k.read[1]
	switch state {
	case 0x01:
		press = true
	case 0x03:
		press = false
	default:
		// Held keys repeat; the boot report already carries them.
		return 0, 0, false, false
	}

	switch code {
	case picoCalcKeyAlt:
		k.altDown = press
		return 0, 0, false, false
	case picoCalcKeyCtrl:
		k.ctrlDown = press
		return 0, 0, false, false
	case picoCalcKeyShift, picoCalcKeyShiftR:
		k.shiftDown = press
		return 0, 0, false, false
	}

	if kc := picoCalcSpecial(code); kc != KeyUnknown {
		usage, ok = usageForKey(kc)
	} else {
		var shift bool
		usage, shift, ok = usageForRune(rune(code))
		if shift {
			mod |= modLeftShift
		}
	}
	if !ok {
		return 0, 0, false, false
	}
	if k.ctrlDown {
		mod |= modLeftCtrl
	}
	if k.altDown {
		mod |= modLeftAlt
	}
	if k.shiftDown {
		mod |= modLeftShift
	}
	return usage, mod, press, true
}

func picoCalcSpecial(code byte) KeyCode {
	switch code {
	case picoCalcKeyBackspace:
		return KeyBackspace
	case picoCalcKeyEsc:
		return KeyEscape
	case picoCalcKeyDel:
		return KeyDelete
	case picoCalcKeyHome:
		return KeyHome
	case picoCalcKeyEnd:
		return KeyEnd
	case picoCalcKeyLeft:
		return KeyLeft
	case picoCalcKeyRight:
		return KeyRight
	case picoCalcKeyUp:
		return KeyUp
	case picoCalcKeyDown:
		return KeyDown
	case picoCalcKeyF1:
		return KeyF1
	case picoCalcKeyF2:
		return KeyF2
	case picoCalcKeyF3:
		return KeyF3
	case picoCalcKeyIns, '\t':
		return KeyNext
	case '\r', '\n':
		return KeyEnter
	default:
		return KeyUnknown
	}
}
