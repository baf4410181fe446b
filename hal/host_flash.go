//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	hostFlashDefaultPath      = "nesport.flash"
	hostFlashDefaultSizeBytes = 4 * 1024 * 1024
	hostFlashEraseBlockBytes  = 4096
)

// FlashPathEnv names the host flash image file.
const FlashPathEnv = "NESPORT_FLASH_PATH"

var ErrFlashWriteRequiresErase = errors.New("flash write requires erase")

// FlashFile is a flash image backed by a host file.
type FlashFile interface {
	Flash
	io.Closer
}

type hostFlash struct {
	mu     sync.Mutex
	f      *os.File
	size   uint32
	erased [hostFlashEraseBlockBytes]byte
}

func newHostFlash() Flash {
	path := os.Getenv(FlashPathEnv)
	if path == "" {
		path = hostFlashDefaultPath
	}
	f, err := OpenFlashFile(path, hostFlashDefaultSizeBytes)
	if err != nil {
		return stubFlash{}
	}
	return f
}

// OpenFlashFile opens or creates a flash image. New (empty) images are sized
// to size bytes and read back as erased.
func OpenFlashFile(path string, size uint32) (FlashFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash image: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat flash image: %w", err)
	}
	hf := &hostFlash{f: f}
	for i := range hf.erased {
		hf.erased[i] = 0xFF
	}

	switch {
	case st.Size() > int64(^uint32(0)):
		f.Close()
		return nil, fmt.Errorf("flash image %s: too large", path)
	case st.Size() > 0:
		hf.size = uint32(st.Size())
	default:
		hf.size = size
		for off := uint32(0); off < size; off += hostFlashEraseBlockBytes {
			if _, err := f.WriteAt(hf.erased[:], int64(off)); err != nil {
				f.Close()
				return nil, fmt.Errorf("format flash image: %w", err)
			}
		}
	}
	return hf, nil
}

func (f *hostFlash) SizeBytes() uint32       { return f.size }
func (f *hostFlash) EraseBlockBytes() uint32 { return hostFlashEraseBlockBytes }

func (f *hostFlash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}

func (f *hostFlash) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size {
		return 0, fmt.Errorf("flash read at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(f.size - off); len(p) > maxN {
		p = p[:maxN]
	}
	return f.f.ReadAt(p, int64(off))
}

func (f *hostFlash) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size {
		return 0, fmt.Errorf("flash write at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(f.size - off); len(p) > maxN {
		p = p[:maxN]
	}

	cur := make([]byte, len(p))
	if _, err := f.f.ReadAt(cur, int64(off)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("flash read before write at %d: %w", off, err)
	}
	// NOR flash only clears bits.
	for i := range p {
		if cur[i]&p[i] != p[i] {
			return 0, ErrFlashWriteRequiresErase
		}
	}
	return f.f.WriteAt(p, int64(off))
}

func (f *hostFlash) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%hostFlashEraseBlockBytes != 0 || size%hostFlashEraseBlockBytes != 0 ||
		off >= f.size || off+size > f.size {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}

	for ; size > 0; size -= hostFlashEraseBlockBytes {
		if _, err := f.f.WriteAt(f.erased[:], int64(off)); err != nil {
			return fmt.Errorf("flash erase block at %d: %w", off, err)
		}
		off += hostFlashEraseBlockBytes
	}
	return nil
}
