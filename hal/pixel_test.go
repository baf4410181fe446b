package hal

import "testing"

func TestRGB565(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
		{0x7C, 0x7C, 0x7C, 0x7BEF},
	}
	for _, c := range cases {
		if got := RGB565(c.r, c.g, c.b); got != c.want {
			t.Fatalf("RGB565(%d,%d,%d) = %#04x, want %#04x", c.r, c.g, c.b, got, c.want)
		}
	}
}

func TestFillRGB565LittleEndian(t *testing.T) {
	buf := make([]byte, 6)
	fillRGB565(buf, 0xF800)
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != 0x00 || buf[i+1] != 0xF8 {
			t.Fatalf("buf[%d:%d] = %#x %#x, want 0x00 0xf8", i, i+2, buf[i], buf[i+1])
		}
	}
}
