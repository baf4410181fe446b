//go:build !tinygo

package rom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the cartridge image extension looked for inside archives.
const Ext = ".nes"

var ErrUnsupportedFormat = errors.New("rom: unsupported file format")

var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06}
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21}
)

type format int

const (
	formatUnknown format = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// FileSource reads an image from a host file. Zip, gzip, 7z and rar archives
// are opened and the first .nes entry is used.
type FileSource struct {
	Path string
}

func (s FileSource) ROM() ([]byte, error) {
	img, _, err := Load(s.Path)
	if err != nil {
		return nil, err
	}
	if _, err := Parse(img); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return img, nil
}

// Load reads the image at path, extracting it from an archive when needed.
// It returns the image and the name of the file it came from.
func Load(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", ErrNoROM
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", ErrNoROM, path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open rom: %w", err)
	}
	defer f.Close()

	head := make([]byte, HeaderLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("read rom header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("seek rom: %w", err)
	}

	switch detect(head[:n], path) {
	case formatRaw:
		data, err := limitedRead(f)
		if err != nil {
			return nil, "", fmt.Errorf("read rom: %w", err)
		}
		return data, filepath.Base(path), nil
	case formatZIP:
		return fromZIP(path)
	case format7z:
		return from7z(path)
	case formatGzip:
		return fromGzip(f, path)
	case formatRAR:
		return fromRAR(path)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func detect(head []byte, path string) format {
	switch {
	case bytes.HasPrefix(head, magic):
		return formatRaw
	case bytes.HasPrefix(head, magicZIP), bytes.HasPrefix(head, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(head, magicRAR):
		return formatRAR
	case bytes.HasPrefix(head, magic7z):
		return format7z
	case bytes.HasPrefix(head, magicGzip):
		return formatGzip
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	case Ext:
		return formatRaw
	}
	return formatUnknown
}

func isROMName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Ext)
}

// limitedRead reads at most MaxImageLen bytes from r.
func limitedRead(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageLen+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageLen {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrBadHeader, MaxImageLen)
	}
	return data, nil
}

func errNoEntry(path string) error {
	return fmt.Errorf("%w: no %s entry in %s", ErrNoROM, Ext, path)
}
