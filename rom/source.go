package rom

import (
	"fmt"

	"nesport/hal"
)

// Source yields one cartridge image.
type Source interface {
	ROM() ([]byte, error)
}

// Bytes is an in-memory image.
type Bytes []byte

func (b Bytes) ROM() ([]byte, error) {
	if _, err := Parse(b); err != nil {
		return nil, err
	}
	return b, nil
}

const DefaultFlashOffset = 0

// FlashSource reads an image stored at a fixed partition in flash. The
// partition holds the image bytes verbatim starting with the iNES header.
type FlashSource struct {
	Flash  hal.Flash
	Offset uint32
	// Size bounds the partition; zero means the rest of the flash, capped
	// at MaxImageLen.
	Size uint32
}

func (s FlashSource) limit() uint32 {
	if s.Flash == nil || s.Offset >= s.Flash.SizeBytes() {
		return 0
	}
	n := s.Flash.SizeBytes() - s.Offset
	if s.Size != 0 && s.Size < n {
		n = s.Size
	}
	if n > MaxImageLen {
		n = MaxImageLen
	}
	return n
}

func (s FlashSource) ROM() ([]byte, error) {
	limit := s.limit()
	if limit < HeaderLen {
		return nil, ErrNoROM
	}

	var hdr [HeaderLen]byte
	if _, err := s.Flash.ReadAt(hdr[:], s.Offset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoROM, err)
	}
	h, err := ParseHeader(hdr[:])
	if err != nil {
		return nil, err
	}
	n := h.ImageLen()
	if uint32(n) > limit {
		return nil, fmt.Errorf("%w: image of %d bytes exceeds %d byte partition", ErrBadHeader, n, limit)
	}

	img := make([]byte, n)
	for off := 0; off < n; {
		m, err := s.Flash.ReadAt(img[off:], s.Offset+uint32(off))
		if err != nil {
			return nil, fmt.Errorf("read rom partition at %d: %w", off, err)
		}
		if m == 0 {
			return nil, fmt.Errorf("%w: short partition", ErrBadHeader)
		}
		off += m
	}
	return img, nil
}

// WriteFlash stores img in the partition at off, erasing the blocks it
// covers first.
func WriteFlash(f hal.Flash, off uint32, img []byte) error {
	if _, err := Parse(img); err != nil {
		return err
	}
	blk := f.EraseBlockBytes()
	if blk == 0 || off%blk != 0 {
		return fmt.Errorf("rom partition offset %d not aligned to %d", off, blk)
	}
	n := uint32(len(img))
	if off >= f.SizeBytes() || n > f.SizeBytes()-off {
		return fmt.Errorf("rom of %d bytes does not fit at %d in %d byte flash", n, off, f.SizeBytes())
	}

	size := (n + blk - 1) / blk * blk
	if off+size > f.SizeBytes() {
		size = f.SizeBytes() - off
	}
	if err := f.Erase(off, size); err != nil {
		return fmt.Errorf("erase rom partition: %w", err)
	}
	for done := uint32(0); done < n; {
		end := done + blk
		if end > n {
			end = n
		}
		if _, err := f.WriteAt(img[done:end], off+done); err != nil {
			return fmt.Errorf("write rom partition at %d: %w", done, err)
		}
		done = end
	}
	return nil
}
