package input

import (
	"sync"

	"nesport/hid"
)

// mapping lists the wired buttons in delivery order. Triangle and square are
// decoded but not wired.
var mapping = []struct {
	bit hid.Buttons
	id  ID
}{
	{hid.ButtonSelect, Select},
	{hid.ButtonStart, Start},
	{hid.ButtonUp, Up},
	{hid.ButtonRight, Right},
	{hid.ButtonDown, Down},
	{hid.ButtonLeft, Left},
	{hid.ButtonCross, B},
	{hid.ButtonCircle, A},
}

// Dispatcher turns controller bitmaps into press/release events. It keeps
// the previous bitmap per slot and emits only on change.
type Dispatcher struct {
	mu    sync.Mutex
	prev  [hid.MaxSlots]hid.Buttons
	sinks [hid.MaxSlots]Sink
}

// NewDispatcher returns a dispatcher with every slot at all-released.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Bind routes events for slot to s. A nil sink unbinds the slot.
func (d *Dispatcher) Bind(slot int, s Sink) {
	if slot < 0 || slot >= hid.MaxSlots {
		return
	}
	d.mu.Lock()
	d.sinks[slot] = s
	d.mu.Unlock()
}

// Update compares cur against the slot's previous bitmap, delivers one
// event per changed wired button, and stores cur. It returns the number of
// events emitted. The slot lock is held across delivery, so handlers must
// not call back into the dispatcher.
func (d *Dispatcher) Update(slot int, cur hid.Buttons) int {
	if slot < 0 || slot >= hid.MaxSlots {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.prev[slot]
	d.prev[slot] = cur
	changed := prev ^ cur
	if changed == 0 {
		return 0
	}

	sink := d.sinks[slot]
	n := 0
	for _, m := range mapping {
		if changed&m.bit == 0 {
			continue
		}
		n++
		tr := Released
		if cur&m.bit != 0 {
			tr = Pressed
		}
		if sink == nil {
			continue
		}
		if h := sink.Lookup(m.id); h != nil {
			h(tr)
		}
	}
	return n
}

// State returns the stored bitmap of slot.
func (d *Dispatcher) State(slot int) hid.Buttons {
	if slot < 0 || slot >= hid.MaxSlots {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prev[slot]
}

// Reset releases every held button on every slot.
func (d *Dispatcher) Reset() {
	for slot := 0; slot < hid.MaxSlots; slot++ {
		d.Update(slot, 0)
	}
}
