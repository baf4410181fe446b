package rom

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testImage() []byte {
	img := Build(Header{PRGBanks: 1, CHRBanks: 1})
	for i := HeaderLen; i < len(img); i++ {
		img[i] = byte(i * 7)
	}
	return img
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestLoadRaw(t *testing.T) {
	img := testImage()
	path := writeFile(t, "game.nes", img)

	got, name, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name != "game.nes" || !bytes.Equal(got, img) {
		t.Fatalf("Load = %q (%d bytes)", name, len(got))
	}
}

func TestLoadRawByMagic(t *testing.T) {
	img := testImage()
	path := writeFile(t, "game.bin", img)
	if _, err := (FileSource{Path: path}).ROM(); err != nil {
		t.Fatalf("ROM: %v", err)
	}
}

func TestLoadZip(t *testing.T) {
	img := testImage()
	path := writeFile(t, "pack.zip", zipBytes(t, map[string][]byte{
		"readme.txt":    []byte("hello"),
		"roms/game.nes": img,
	}))

	got, name, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name != "game.nes" || !bytes.Equal(got, img) {
		t.Fatalf("Load = %q (%d bytes)", name, len(got))
	}
}

func TestLoadZipWithoutImage(t *testing.T) {
	path := writeFile(t, "pack.zip", zipBytes(t, map[string][]byte{"readme.txt": []byte("hello")}))
	if _, _, err := Load(path); !errors.Is(err, ErrNoROM) {
		t.Fatalf("err = %v, want ErrNoROM", err)
	}
}

func TestLoadGzip(t *testing.T) {
	img := testImage()
	path := writeFile(t, "game.nes.gz", gzipBytes(t, img))

	got, name, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name != "game.nes" || !bytes.Equal(got, img) {
		t.Fatalf("Load = %q (%d bytes)", name, len(got))
	}
}

func TestLoadTarGz(t *testing.T) {
	img := testImage()
	var tbuf bytes.Buffer
	tw := tar.NewWriter(&tbuf)
	if err := tw.WriteHeader(&tar.Header{Name: "dir/game.nes", Mode: 0o644, Size: int64(len(img)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write(img); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	path := writeFile(t, "pack.tar.gz", gzipBytes(t, tbuf.Bytes()))

	got, name, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name != "game.nes" || !bytes.Equal(got, img) {
		t.Fatalf("Load = %q (%d bytes)", name, len(got))
	}
}

func TestLoadCorruptArchives(t *testing.T) {
	for _, c := range []struct {
		name string
		data []byte
	}{
		{"bad.7z", append([]byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, make([]byte, 32)...)},
		{"bad.rar", append([]byte("Rar!"), make([]byte, 32)...)},
	} {
		path := writeFile(t, c.name, c.data)
		if _, _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}

func TestLoadMissingAndUnsupported(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.nes")); !errors.Is(err, ErrNoROM) {
		t.Fatalf("missing err = %v, want ErrNoROM", err)
	}
	if _, _, err := Load(""); !errors.Is(err, ErrNoROM) {
		t.Fatalf("empty path err = %v, want ErrNoROM", err)
	}
	path := writeFile(t, "notes.txt", []byte("plain text"))
	if _, _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("unsupported err = %v", err)
	}
}

func TestFileSourceRejectsBadImage(t *testing.T) {
	path := writeFile(t, "broken.nes", []byte("NES\x1a\x00"))
	if _, err := (FileSource{Path: path}).ROM(); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("err = %v, want ErrBadHeader", err)
	}
}
