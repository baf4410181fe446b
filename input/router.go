package input

import (
	"nesport/hal"
	"nesport/hid"
)

// Router receives decoded HID reports and feeds the dispatcher. Keyboards
// drive their slot through the keypad mapping of the keys they hold.
type Router struct {
	d *Dispatcher

	// OnKey, when set, sees every key event before keypad mapping.
	OnKey func(slot int, ev hal.KeyEvent)
	// OnPointer, when set, sees every pointer update.
	OnPointer func(p hid.PointerState)
}

var _ hid.Sink = (*Router)(nil)

// NewRouter returns a router feeding d.
func NewRouter(d *Dispatcher) *Router {
	return &Router{d: d}
}

func (r *Router) GamepadReport(slot int, b hid.Buttons) {
	r.d.Update(slot, b)
}

func (r *Router) KeyboardReport(slot int, evs []hal.KeyEvent, rep hid.KeyboardReport) {
	if slot < 0 || slot >= hid.MaxSlots {
		return
	}
	if r.OnKey != nil {
		for _, ev := range evs {
			r.OnKey(slot, ev)
		}
	}

	r.d.Update(slot, KeypadButtons(rep.Keys))
}

func (r *Router) PointerReport(p hid.PointerState) {
	if r.OnPointer != nil {
		r.OnPointer(p)
	}
}
