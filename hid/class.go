package hid

import "nesport/hal"

// Class selects the report decoder for a device.
type Class uint8

const (
	ClassGeneric Class = iota
	ClassKeyboard
	ClassPointer
)

func (c Class) String() string {
	switch c {
	case ClassKeyboard:
		return "keyboard"
	case ClassPointer:
		return "pointer"
	default:
		return "generic"
	}
}

// Classify maps a declared interface protocol to a class and whether the
// boot protocol should be forced. Protocol none is ambiguous: the device is
// decoded as a generic controller but still asked for boot reports.
func Classify(protocol uint8) (c Class, boot bool) {
	switch protocol {
	case hal.HIDProtocolKeyboard:
		return ClassKeyboard, true
	case hal.HIDProtocolMouse:
		return ClassPointer, true
	case hal.HIDProtocolNone:
		return ClassGeneric, true
	default:
		return ClassGeneric, false
	}
}
