package rom

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseHeader(t *testing.T) {
	img := Build(Header{PRGBanks: 2, CHRBanks: 1, Mapper: 0x42, Mirroring: MirrorVertical, Battery: true})
	h, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.PRGBanks != 2 || h.CHRBanks != 1 || h.Mapper != 0x42 {
		t.Fatalf("header = %+v", h)
	}
	if h.Mirroring != MirrorVertical || !h.Battery || h.Trainer {
		t.Fatalf("flags = %+v", h)
	}
	if got, want := h.ImageLen(), HeaderLen+2*PRGBankLen+CHRBankLen; got != want {
		t.Fatalf("ImageLen = %d, want %d", got, want)
	}
}

func TestParseHeaderIgnoresDirtyTail(t *testing.T) {
	img := Build(Header{PRGBanks: 1, Mapper: 0x31})
	copy(img[7:], "DiskDude!")
	h, err := ParseHeader(img)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Mapper != 0x01 {
		t.Fatalf("mapper = %#x, want 0x01", h.Mapper)
	}
}

func TestParseHeaderTrainer(t *testing.T) {
	img := Build(Header{PRGBanks: 1, Trainer: true})
	h, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.ImageLen() != HeaderLen+TrainerLen+PRGBankLen {
		t.Fatalf("ImageLen = %d", h.ImageLen())
	}
}

func TestParseHeaderErrors(t *testing.T) {
	erased := bytes.Repeat([]byte{0xff}, HeaderLen)
	badMagic := Build(Header{PRGBanks: 1})
	badMagic[3] = 0x1b
	noPRG := Build(Header{CHRBanks: 1})
	huge := Build(Header{PRGBanks: 1})
	huge[4] = 255

	cases := []struct {
		name string
		img  []byte
		want error
	}{
		{"empty", nil, ErrNoROM},
		{"erased", erased, ErrNoROM},
		{"zeroed", make([]byte, 64), ErrNoROM},
		{"short", []byte("NES"), ErrBadHeader},
		{"magic", badMagic, ErrBadHeader},
		{"no prg", noPRG, ErrBadHeader},
		{"too large", huge, ErrBadHeader},
		{"truncated", Build(Header{PRGBanks: 2})[:HeaderLen+PRGBankLen], ErrBadHeader},
	}
	for _, c := range cases {
		if _, err := Parse(c.img); !errors.Is(err, c.want) {
			t.Fatalf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}
}

func TestBytesSource(t *testing.T) {
	img := Build(Header{PRGBanks: 1, CHRBanks: 1})
	got, err := Bytes(img).ROM()
	if err != nil {
		t.Fatalf("ROM: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("ROM returned different bytes")
	}
	if _, err := Bytes(nil).ROM(); !errors.Is(err, ErrNoROM) {
		t.Fatalf("empty ROM err = %v", err)
	}
}
