package hid

import "strings"

// PointerReportLen is the minimum size of a boot mouse report.
const PointerReportLen = 3

// PointerState is the accumulated state of a pointer device.
type PointerState struct {
	X, Y    int
	Primary bool
	Buttons uint8
}

// Apply adds one boot mouse report (buttons, int8 dx, int8 dy) to s. Short
// reports are rejected and leave s unchanged.
func (s *PointerState) Apply(b []byte) bool {
	if len(b) < PointerReportLen {
		return false
	}
	s.Buttons = b[0]
	s.Primary = b[0]&0x01 != 0
	s.X += int(int8(b[1]))
	s.Y += int(int8(b[2]))
	return true
}

// GenericReportLen is the size of a generic controller report: two reserved
// bytes, then the system/direction byte and the face-button byte.
const GenericReportLen = 4

// Buttons is a controller bitmap: report byte 2 in the low byte, report
// byte 3 in the high byte.
type Buttons uint16

const (
	ButtonSelect Buttons = 1 << 0
	ButtonStart  Buttons = 1 << 1
	ButtonUp     Buttons = 1 << 2
	ButtonRight  Buttons = 1 << 3
	ButtonDown   Buttons = 1 << 4
	ButtonLeft   Buttons = 1 << 5

	ButtonTriangle Buttons = 1 << 12
	ButtonCircle   Buttons = 1 << 13
	ButtonCross    Buttons = 1 << 14
	ButtonSquare   Buttons = 1 << 15

	// ButtonsMask covers every defined bit.
	ButtonsMask = ButtonSelect | ButtonStart | ButtonUp | ButtonRight | ButtonDown | ButtonLeft |
		ButtonTriangle | ButtonCircle | ButtonCross | ButtonSquare
)

var buttonNames = []struct {
	b    Buttons
	name string
}{
	{ButtonSelect, "select"},
	{ButtonStart, "start"},
	{ButtonUp, "up"},
	{ButtonRight, "right"},
	{ButtonDown, "down"},
	{ButtonLeft, "left"},
	{ButtonTriangle, "triangle"},
	{ButtonCircle, "circle"},
	{ButtonCross, "cross"},
	{ButtonSquare, "square"},
}

// Has reports whether every bit of m is set.
func (b Buttons) Has(m Buttons) bool { return b&m == m }

func (b Buttons) String() string {
	var names []string
	for _, n := range buttonNames {
		if b.Has(n.b) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// DecodeGeneric extracts the controller bitmap. Reserved bits are masked
// off; short reports are rejected.
func DecodeGeneric(b []byte) (Buttons, bool) {
	if len(b) < GenericReportLen {
		return 0, false
	}
	return (Buttons(b[2]) | Buttons(b[3])<<8) & ButtonsMask, true
}
