//go:build !tinygo

package hal

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFlashFileEraseWrite(t *testing.T) {
	f, err := OpenFlashFile(filepath.Join(t.TempDir(), "img.flash"), 4*hostFlashEraseBlockBytes)
	if err != nil {
		t.Fatalf("OpenFlashFile() err = %v", err)
	}
	defer f.Close()

	if got := f.SizeBytes(); got != 4*hostFlashEraseBlockBytes {
		t.Fatalf("SizeBytes() = %d", got)
	}

	b := make([]byte, 4)
	if _, err := f.ReadAt(b, 0); err != nil {
		t.Fatalf("ReadAt() err = %v", err)
	}
	if b[0] != 0xFF {
		t.Fatalf("fresh image byte = %#x, want 0xff", b[0])
	}

	if _, err := f.WriteAt([]byte{0x0F}, 0); err != nil {
		t.Fatalf("WriteAt() err = %v", err)
	}
	if _, err := f.WriteAt([]byte{0xF0}, 0); !errors.Is(err, ErrFlashWriteRequiresErase) {
		t.Fatalf("WriteAt() over programmed bits err = %v, want ErrFlashWriteRequiresErase", err)
	}
	if err := f.Erase(0, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("Erase() err = %v", err)
	}
	if _, err := f.WriteAt([]byte{0xF0}, 0); err != nil {
		t.Fatalf("WriteAt() after erase err = %v", err)
	}
	if err := f.Erase(1, hostFlashEraseBlockBytes); err == nil {
		t.Fatalf("Erase() unaligned err = nil")
	}
}
