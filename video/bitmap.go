package video

import "sync"

// Bitmap is an indexed-color frame: one palette index per pixel, row-major,
// Pitch bytes per row.
type Bitmap struct {
	Width  int
	Height int
	Pitch  int
	Pix    []uint8
}

// Set stores a palette index at (x, y). Out-of-range writes are ignored.
func (b *Bitmap) Set(x, y int, index uint8) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Pitch+x] = index
}

// Fill sets every pixel to index.
func (b *Bitmap) Fill(index uint8) {
	for i := range b.Pix {
		b.Pix[i] = index
	}
}

// Rect is a dirty region in frame coordinates.
type Rect struct {
	X, Y, W, H int
}

// clip returns r limited to a w x h frame.
func (r Rect) clip(w, h int) (Rect, bool) {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, w), min(r.Y+r.H, h)
	if x0 >= x1 || y0 >= y1 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, true
}

// bitmapPool recycles scratch bitmaps of one geometry. Rows are padded to
// two bytes per pixel, as the core expects.
type bitmapPool struct {
	w, h int
	p    sync.Pool
}

func newBitmapPool(w, h int) *bitmapPool {
	bp := &bitmapPool{w: w, h: h}
	bp.p.New = func() any {
		pitch := w * 2
		return &Bitmap{Width: w, Height: h, Pitch: pitch, Pix: make([]uint8, pitch*h)}
	}
	return bp
}

func (bp *bitmapPool) get() *Bitmap { return bp.p.Get().(*Bitmap) }

func (bp *bitmapPool) put(b *Bitmap) {
	if b == nil || b.Width != bp.w || b.Height != bp.h {
		return
	}
	bp.p.Put(b)
}
