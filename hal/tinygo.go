//go:build tinygo && baremetal && !picocalc

package hal

import (
	"machine"

	"tinygo.org/x/drivers/ili9341"
)

const (
	panelWidth  = 320
	panelHeight = 240
)

type tinyGoHAL struct {
	logger *uartLogger
	fb     Framebuffer
	usb    *virtualUSB
	t      *tinyGoTime
	flash  Flash
}

// New returns an RP2040/RP2350 HAL with an ILI9341 320x240 panel on SPI0.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// LCD: SCK GP18, SDO GP19, SDI GP16, CS GP17, DC GP20, RST GP21.
func New() HAL {
	logger := newUARTLogger()

	var fb Framebuffer
	if lcd, err := newILI9341Panel(); err == nil {
		fb = newPanelFramebuffer(panelWidth, panelHeight, lcd)
	} else {
		logger.WriteLineString("hal: lcd: " + err.Error())
		fb = newPanelFramebuffer(panelWidth, panelHeight, nil)
	}

	return &tinyGoHAL{
		logger: logger,
		fb:     fb,
		usb:    newVirtualUSB(),
		t:      newTinyGoTime(),
		flash:  newRP2Flash(),
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) USB() USBHost     { return h.usb }
func (h *tinyGoHAL) Flash() Flash     { return h.flash }
func (h *tinyGoHAL) Time() Time       { return h.t }

// ili9341Panel streams frames through the driver in row bands.
type ili9341Panel struct {
	dev   *ili9341.Device
	txBuf []byte
}

func newILI9341Panel() (*ili9341Panel, error) {
	if err := machine.SPI0.Configure(machine.SPIConfig{
		SCK:       machine.GP18,
		SDO:       machine.GP19,
		SDI:       machine.GP16,
		Frequency: 40_000_000,
	}); err != nil {
		return nil, err
	}

	dev := ili9341.NewSPI(machine.SPI0, machine.GP20, machine.GP17, machine.GP21)
	dev.Configure(ili9341.Config{})
	dev.SetRotation(ili9341.Rotation90)
	return &ili9341Panel{dev: dev, txBuf: make([]byte, panelWidth*2*16)}, nil
}

func (p *ili9341Panel) blitRGB565LittleEndian(buf []byte, w, h int) error {
	rows := len(p.txBuf) / (w * 2)
	if rows == 0 {
		rows = 1
		p.txBuf = make([]byte, w*2)
	}
	for y := 0; y < h; y += rows {
		n := rows
		if y+n > h {
			n = h - y
		}
		src := buf[y*w*2 : (y+n)*w*2]
		dst := p.txBuf[:len(src)]
		// The framebuffer is little-endian; the driver wants big-endian.
		for i := 0; i+1 < len(src); i += 2 {
			dst[i] = src[i+1]
			dst[i+1] = src[i]
		}
		if err := p.dev.DrawRGBBitmap8(0, int16(y), dst, int16(w), int16(n)); err != nil {
			return err
		}
	}
	return nil
}
