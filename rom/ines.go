// Package rom locates and validates iNES cartridge images.
package rom

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrNoROM means no cartridge image is present at the source.
	ErrNoROM = errors.New("rom: no image")
	// ErrBadHeader means an image is present but is not a usable iNES file.
	ErrBadHeader = errors.New("rom: bad iNES header")
)

const (
	HeaderLen   = 16
	TrainerLen  = 512
	PRGBankLen  = 16 * 1024
	CHRBankLen  = 8 * 1024
	MaxImageLen = 3 * 1024 * 1024
)

var magic = []byte{'N', 'E', 'S', 0x1a}

// Mirroring is the nametable arrangement wired on the cartridge.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorFourScreen
)

func (m Mirroring) String() string {
	switch m {
	case MirrorVertical:
		return "vertical"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return "horizontal"
	}
}

// Header is a decoded iNES header.
type Header struct {
	PRGBanks  int
	CHRBanks  int
	Mapper    int
	Mirroring Mirroring
	Battery   bool
	Trainer   bool
	NES2      bool
}

// ImageLen is the number of bytes the header says the image occupies.
func (h Header) ImageLen() int {
	n := HeaderLen + h.PRGBanks*PRGBankLen + h.CHRBanks*CHRBankLen
	if h.Trainer {
		n += TrainerLen
	}
	return n
}

func (h Header) String() string {
	return fmt.Sprintf("mapper %d, %dK PRG, %dK CHR, %s", h.Mapper, h.PRGBanks*16, h.CHRBanks*8, h.Mirroring)
}

// ParseHeader decodes the first HeaderLen bytes of an image. A header that is
// blank (all zero or all erased) reports ErrNoROM.
func ParseHeader(b []byte) (Header, error) {
	if len(b) == 0 || blank(b) {
		return Header{}, ErrNoROM
	}
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrBadHeader, len(b))
	}
	if !bytes.Equal(b[:4], magic) {
		return Header{}, fmt.Errorf("%w: magic % x", ErrBadHeader, b[:4])
	}

	f6, f7 := b[6], b[7]
	h := Header{
		PRGBanks: int(b[4]),
		CHRBanks: int(b[5]),
		Battery:  f6&0x02 != 0,
		Trainer:  f6&0x04 != 0,
		NES2:     f7&0x0c == 0x08,
	}
	switch {
	case f6&0x08 != 0:
		h.Mirroring = MirrorFourScreen
	case f6&0x01 != 0:
		h.Mirroring = MirrorVertical
	}

	h.Mapper = int(f6 >> 4)
	// Old dumping tools wrote junk into bytes 7..15; trust the high mapper
	// nibble only when the tail is clean or the file is NES 2.0.
	if h.NES2 || blankZero(b[12:HeaderLen]) {
		h.Mapper |= int(f7 & 0xf0)
	}

	if h.PRGBanks == 0 {
		return Header{}, fmt.Errorf("%w: no PRG banks", ErrBadHeader)
	}
	if h.ImageLen() > MaxImageLen {
		return Header{}, fmt.Errorf("%w: image of %d bytes exceeds %d", ErrBadHeader, h.ImageLen(), MaxImageLen)
	}
	return h, nil
}

// Parse validates a whole image and returns its header. Bytes past the
// header's image length are ignored.
func Parse(img []byte) (Header, error) {
	h, err := ParseHeader(img)
	if err != nil {
		return Header{}, err
	}
	if len(img) < h.ImageLen() {
		return Header{}, fmt.Errorf("%w: truncated, %d of %d bytes", ErrBadHeader, len(img), h.ImageLen())
	}
	return h, nil
}

// Build returns a zero-filled image carrying h's header.
func Build(h Header) []byte {
	img := make([]byte, h.ImageLen())
	copy(img, magic)
	img[4] = byte(h.PRGBanks)
	img[5] = byte(h.CHRBanks)

	f6 := byte(h.Mapper&0x0f) << 4
	switch h.Mirroring {
	case MirrorVertical:
		f6 |= 0x01
	case MirrorFourScreen:
		f6 |= 0x08
	}
	if h.Battery {
		f6 |= 0x02
	}
	if h.Trainer {
		f6 |= 0x04
	}
	f7 := byte(h.Mapper & 0xf0)
	if h.NES2 {
		f7 |= 0x08
	}
	img[6], img[7] = f6, f7
	return img
}

func blank(b []byte) bool {
	if len(b) > HeaderLen {
		b = b[:HeaderLen]
	}
	return blankZero(b) || bytes.Count(b, []byte{0xff}) == len(b)
}

func blankZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
