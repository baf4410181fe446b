package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"nesport/hal"
)

var (
	ErrShutdown = errors.New("video pipeline shut down")
	ErrNoBitmap = errors.New("no bitmap")
)

// Driver is the video surface an emulation core draws through.
type Driver interface {
	Init(width, height int) error
	Shutdown()
	SetMode(width, height int) error
	SetPalette(p *Palette)
	Clear(index uint8) error
	// LockWrite hands out the scratch bitmap for the next frame. It stays
	// owned by the caller until FreeWrite.
	LockWrite() *Bitmap
	FreeWrite(dirty []Rect)
	// CustomBlit converts bmp through the palette into the display
	// framebuffer and presents it. It returns once the copy is done.
	CustomBlit(bmp *Bitmap, dirty []Rect) error
}

// State is the pipeline lifecycle position.
type State uint8

const (
	StateUninitialized State = iota
	StateModeSet
	StateLocked
	StateUnlocked
	StateBlitted
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateModeSet:
		return "mode-set"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	case StateBlitted:
		return "blitted"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Config fixes the pipeline geometry.
type Config struct {
	Width  int
	Height int
	// DirtyRects restricts CustomBlit to the supplied regions. An empty
	// region list still converts the whole frame.
	DirtyRects bool
	Logger     hal.Logger
}

// Pipeline implements Driver on top of a hal.Framebuffer.
type Pipeline struct {
	cfg Config
	log hal.Logger
	fb  *frameBuffer

	// table is swapped whole by SetPalette; a blit loads it once.
	table atomic.Pointer[Table]
	pool  *bitmapPool

	mu    sync.Mutex
	state State
	out   *Bitmap
}

var _ Driver = (*Pipeline)(nil)

// NewPipeline takes ownership of the canvas area of fb. It fails with
// ErrNoFramebuffer when fb cannot hold the configured geometry.
func NewPipeline(fb hal.Framebuffer, cfg Config) (*Pipeline, error) {
	f, err := newFrameBuffer(fb, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:  cfg,
		log:  cfg.Logger,
		fb:   f,
		pool: newBitmapPool(cfg.Width, cfg.Height),
	}
	p.table.Store(&Table{})
	return p, nil
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.log == nil {
		return
	}
	p.log.WriteLineString("video: " + fmt.Sprintf(format, args...))
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Size returns the fixed canvas geometry.
func (p *Pipeline) Size() (w, h int) { return p.cfg.Width, p.cfg.Height }

// Init records the requested geometry. The canvas size is fixed by config,
// so a different request is logged and otherwise ignored.
func (p *Pipeline) Init(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateShutdown {
		return ErrShutdown
	}
	p.checkGeometry("init", width, height)
	p.state = StateModeSet
	return nil
}

// SetMode validates a mode change against the fixed geometry.
func (p *Pipeline) SetMode(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateShutdown {
		return ErrShutdown
	}
	p.checkGeometry("set mode", width, height)
	if p.state == StateUninitialized {
		p.state = StateModeSet
	}
	return nil
}

func (p *Pipeline) checkGeometry(op string, width, height int) {
	if width != p.cfg.Width || height != p.cfg.Height {
		p.logf("%s %dx%d: canvas fixed at %dx%d", op, width, height, p.cfg.Width, p.cfg.Height)
	}
}

// SetPalette installs the converted palette for the following frames.
func (p *Pipeline) SetPalette(pal *Palette) {
	if pal == nil {
		return
	}
	if p.State() == StateShutdown {
		return
	}
	p.table.Store(ConvertPalette(pal))
}

// Palette returns the installed native table.
func (p *Pipeline) Palette() *Table { return p.table.Load() }

// Clear fills the canvas with the color of index and presents it.
func (p *Pipeline) Clear(index uint8) error {
	if p.State() == StateShutdown {
		return ErrShutdown
	}
	pixel := p.table.Load()[index]

	p.fb.lock()
	defer p.fb.unlock()
	p.fb.fill(pixel)
	return p.fb.present()
}

// LockWrite returns the scratch bitmap for the next frame, or nil after
// Shutdown. Locking twice returns the bitmap already handed out.
func (p *Pipeline) LockWrite() *Bitmap {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateShutdown {
		return nil
	}
	if p.out == nil {
		p.out = p.pool.get()
	}
	p.state = StateLocked
	return p.out
}

// FreeWrite returns the outstanding scratch bitmap to the pool.
func (p *Pipeline) FreeWrite(dirty []Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateShutdown {
		return
	}
	p.pool.put(p.out)
	p.out = nil
	p.state = StateUnlocked
}

// CustomBlit converts bmp through the installed palette into the canvas
// and presents it. Rows and columns beyond the canvas are ignored.
func (p *Pipeline) CustomBlit(bmp *Bitmap, dirty []Rect) error {
	if bmp == nil {
		return ErrNoBitmap
	}
	if p.State() == StateShutdown {
		return ErrShutdown
	}

	w, h := min(bmp.Width, p.cfg.Width), min(bmp.Height, p.cfg.Height)
	table := p.table.Load()

	p.fb.lock()
	if p.cfg.DirtyRects && len(dirty) > 0 {
		for _, r := range dirty {
			if c, ok := r.clip(w, h); ok {
				p.blitRect(table, bmp, c)
			}
		}
	} else {
		p.blitRect(table, bmp, Rect{W: w, H: h})
	}
	err := p.fb.present()
	p.fb.unlock()
	if err != nil {
		return fmt.Errorf("video: present: %w", err)
	}

	p.mu.Lock()
	if p.state != StateShutdown {
		p.state = StateBlitted
	}
	p.mu.Unlock()
	return nil
}

// blitRect converts one clipped region. Callers hold the display lock.
func (p *Pipeline) blitRect(table *Table, bmp *Bitmap, r Rect) {
	for y := r.Y; y < r.Y+r.H; y++ {
		src := bmp.Pix[y*bmp.Pitch+r.X : y*bmp.Pitch+r.X+r.W]
		dst := p.fb.row(r.X, y, r.W)
		for i, idx := range src {
			c := table[idx]
			dst[2*i] = byte(c)
			dst[2*i+1] = byte(c >> 8)
		}
	}
}

// Shutdown releases the scratch bitmap and blanks the canvas. Every later
// call is a no-op.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if p.state == StateShutdown {
		p.mu.Unlock()
		return
	}
	p.state = StateShutdown
	p.pool.put(p.out)
	p.out = nil
	p.mu.Unlock()

	p.fb.lock()
	p.fb.fill(0)
	_ = p.fb.present()
	p.fb.unlock()
}

// Snapshot copies the visible canvas into an RGBA image.
func (p *Pipeline) Snapshot() *image.RGBA {
	w, h := p.cfg.Width, p.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	p.fb.lock()
	defer p.fb.unlock()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := hal.RGB888From565(p.fb.pixel(x, y))
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
		}
	}
	return img
}
