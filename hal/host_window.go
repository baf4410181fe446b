//go:build !tinygo && cgo

package hal

import (
	"image"

	"nesport/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	// Scale multiplies the panel size for the initial window size.
	Scale int
	// Title defaults to the program name and build.
	Title string
}

// RunWindow starts a desktop window that shows the framebuffer and turns the
// host keyboard, mouse and gamepads into HID devices on the USB host.
// It blocks until the window closes.
func RunWindow(newApp func(HAL) func() error, cfg WindowConfig) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	if cfg.Title == "" {
		cfg.Title = "nesport (" + buildinfo.Short() + ")"
	}

	h := newHostHAL()
	in := newHostInput(h.usb)
	step := newApp(h)

	g := &hostGame{h: h, in: in, step: step}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(h.fb.width*cfg.Scale, h.fb.height*cfg.Scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	in      *hostInput
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	seq     uint64
	step    func() error
}

func (g *hostGame) Update() error {
	g.in.poll()
	g.h.t.step(1)
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	seq, changed := fb.snapshotRGB565(g.scratch, g.seq)
	if changed {
		g.seq = seq
		rgb565ToRGBA(g.img.Pix, g.scratch)
		g.fbImg.WritePixels(g.img.Pix)
	}
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}

func rgb565ToRGBA(dst, src []byte) {
	for i := 0; i+1 < len(src) && i*2+3 < len(dst); i += 2 {
		r, gg, b := RGB888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := i * 2
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}
}
