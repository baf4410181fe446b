package hid

import (
	"testing"

	"nesport/hal"
)

func TestDecodeKeyCharacters(t *testing.T) {
	cases := []struct {
		code  uint8
		shift bool
		want  rune
	}{
		{0x04, false, 'a'},
		{0x04, true, 'A'},
		{0x1E, false, '1'},
		{0x1E, true, '!'},
		{0x28, false, '\r'},
		{0x28, true, '\r'},
		{0x2C, false, ' '},
		{0x38, true, '?'},
	}
	for _, c := range cases {
		k, ok := DecodeKey(c.code, c.shift)
		if !ok || k.Rune != c.want {
			t.Fatalf("DecodeKey(%#x, %v) = (%q, %v), want %q", c.code, c.shift, k.Rune, ok, c.want)
		}
	}
}

func TestDecodeKeyNavigation(t *testing.T) {
	cases := []struct {
		code  uint8
		shift bool
		want  hal.KeyCode
	}{
		{0x2B, false, hal.KeyNext},
		{0x2B, true, hal.KeyPrev},
		{0x28, false, hal.KeyEnter},
		{0x52, false, hal.KeyUp},
		{0x51, false, hal.KeyDown},
		{0x50, false, hal.KeyLeft},
		{0x4F, false, hal.KeyRight},
		{0x4C, false, hal.KeyDelete},
		{0x4A, false, hal.KeyHome},
		{0x4D, false, hal.KeyEnd},
	}
	for _, c := range cases {
		k, ok := DecodeKey(c.code, c.shift)
		if !ok || k.Code != c.want {
			t.Fatalf("DecodeKey(%#x, %v) = (%v, %v), want %v", c.code, c.shift, k.Code, ok, c.want)
		}
	}
}

func TestDecodeKeyUnrecognized(t *testing.T) {
	for _, code := range []uint8{0x00, 0x01, 0x03, 0x32, 0x39, 0x64, 0xFF} {
		if k, ok := DecodeKey(code, false); ok {
			t.Fatalf("DecodeKey(%#x) = %+v, want unrecognized", code, k)
		}
	}
}

func TestDecodeKeyboard(t *testing.T) {
	if _, ok := DecodeKeyboard([]byte{0, 0, 4}); ok {
		t.Fatalf("DecodeKeyboard(short) ok = true")
	}

	r, ok := DecodeKeyboard([]byte{ModRightShift, 0, 0x04, 0x39, 0x2B, 0, 0, 0})
	if !ok {
		t.Fatalf("DecodeKeyboard() ok = false")
	}
	if !r.Pressed {
		t.Fatalf("Pressed = false with slot 0 set")
	}
	if len(r.Keys) != 2 || r.Keys[0].Rune != 'A' || r.Keys[1].Code != hal.KeyPrev {
		t.Fatalf("Keys = %+v, want [A, prev]", r.Keys)
	}

	r, _ = DecodeKeyboard(make([]byte, 8))
	if r.Pressed || len(r.Keys) != 0 {
		t.Fatalf("empty report = %+v, want released", r)
	}
}

func TestKeyboardStateEdges(t *testing.T) {
	var s keyboardState

	r, _ := DecodeKeyboard([]byte{0, 0, 0x04, 0, 0, 0, 0, 0})
	evs := s.update(r)
	if len(evs) != 1 || !evs[0].Press || evs[0].Rune != 'a' {
		t.Fatalf("first report events = %+v, want press a", evs)
	}
	if evs := s.update(r); len(evs) != 0 {
		t.Fatalf("repeated report events = %+v, want none", evs)
	}

	r, _ = DecodeKeyboard([]byte{0, 0, 0x05, 0, 0, 0, 0, 0})
	evs = s.update(r)
	if len(evs) != 2 || evs[0].Press || evs[0].Rune != 'a' || !evs[1].Press || evs[1].Rune != 'b' {
		t.Fatalf("rollover events = %+v, want release a, press b", evs)
	}

	evs = s.release()
	if len(evs) != 1 || evs[0].Press || evs[0].Rune != 'b' {
		t.Fatalf("release() = %+v, want release b", evs)
	}
}

func TestPointerApply(t *testing.T) {
	var p PointerState
	if p.Apply([]byte{1, 2}) {
		t.Fatalf("Apply(short) = true")
	}
	p.Apply([]byte{0x01, 5, 0xFE})
	p.Apply([]byte{0x00, 0xFB, 0x03})
	if p.X != 0 || p.Y != 1 || p.Primary {
		t.Fatalf("PointerState = %+v, want X=0 Y=1 released", p)
	}
	p.Apply([]byte{0x03, 0, 0})
	if !p.Primary || p.Buttons != 0x03 {
		t.Fatalf("PointerState = %+v, want primary down", p)
	}
}

func TestDecodeGeneric(t *testing.T) {
	if _, ok := DecodeGeneric([]byte{0, 0, 1}); ok {
		t.Fatalf("DecodeGeneric(short) ok = true")
	}
	b, ok := DecodeGeneric([]byte{0xFF, 0xFF, 0b00000001, 0})
	if !ok || b != ButtonSelect {
		t.Fatalf("DecodeGeneric(select) = %v, want select", b)
	}
	b, _ = DecodeGeneric([]byte{0, 0, 0b11000000, 0b01001111})
	if b != ButtonCross {
		t.Fatalf("DecodeGeneric(reserved bits + cross) = %v, want cross", b)
	}
	b, _ = DecodeGeneric([]byte{0, 0, 0b00111110, 0b10110000})
	want := ButtonStart | ButtonUp | ButtonRight | ButtonDown | ButtonLeft | ButtonTriangle | ButtonCircle | ButtonSquare
	if b != want {
		t.Fatalf("DecodeGeneric() = %v, want %v", b, want)
	}
	if got := (ButtonSelect | ButtonCross).String(); got != "select+cross" {
		t.Fatalf("String() = %q", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		protocol uint8
		class    Class
		boot     bool
	}{
		{hal.HIDProtocolKeyboard, ClassKeyboard, true},
		{hal.HIDProtocolMouse, ClassPointer, true},
		{hal.HIDProtocolNone, ClassGeneric, true},
		{0x7F, ClassGeneric, false},
	}
	for _, c := range cases {
		class, boot := Classify(c.protocol)
		if class != c.class || boot != c.boot {
			t.Fatalf("Classify(%d) = (%v, %v), want (%v, %v)", c.protocol, class, boot, c.class, c.boot)
		}
	}
}
