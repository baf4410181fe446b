//go:build tinygo && baremetal && picocalc

package hal

import "time"

const (
	picoCalcPanelWidth  = 320
	picoCalcPanelHeight = 320
)

type picoCalcHAL struct {
	logger *uartLogger
	fb     Framebuffer
	usb    *virtualUSB
	t      *tinyGoTime
	flash  Flash
}

// New returns a PicoCalc HAL implementation (Pico/Pico2 on the PicoCalc carrier).
//
// The built-in keyboard is presented as a USB boot keyboard.
func New() HAL {
	logger := newUARTLogger()

	var lcd panel
	if d, err := initILI9488(); err == nil {
		lcd = d
	} else {
		logger.WriteLineString("hal: lcd: " + err.Error())
	}

	usb := newVirtualUSB()
	if kbd, err := initI2CKeyboard(); err == nil {
		go runPicoCalcKeyboard(usb, kbd)
	} else {
		logger.WriteLineString("hal: " + err.Error())
	}

	return &picoCalcHAL{
		logger: logger,
		fb:     newPanelFramebuffer(picoCalcPanelWidth, picoCalcPanelHeight, lcd),
		usb:    usb,
		t:      newTinyGoTime(),
		flash:  newRP2Flash(),
	}
}

func (h *picoCalcHAL) Logger() Logger   { return h.logger }
func (h *picoCalcHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *picoCalcHAL) USB() USBHost     { return h.usb }
func (h *picoCalcHAL) Flash() Flash     { return h.flash }
func (h *picoCalcHAL) Time() Time       { return h.t }

// runPicoCalcKeyboard polls the keyboard MCU and reports the held key set
// as boot keyboard reports.
func runPicoCalcKeyboard(usb *virtualUSB, kbd *i2cKeyboard) {
	h := usb.connect(HIDSubclassBoot, HIDProtocolKeyboard)
	held := make([]uint8, 0, 6)
	for {
		usage, mod, press, ok := kbd.readUsage()
		if !ok {
			time.Sleep(2 * time.Millisecond)
			continue
		}

		idx := -1
		for i, u := range held {
			if u == usage {
				idx = i
				break
			}
		}
		switch {
		case press && idx < 0:
			held = append(held, usage)
		case !press && idx >= 0:
			held = append(held[:idx], held[idx+1:]...)
		}
		usb.report(h, bootKeyboardReport(mod, held))
	}
}
