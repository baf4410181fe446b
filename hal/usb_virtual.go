package hal

import (
	"errors"
	"sync"
)

var ErrUnknownDevice = errors.New("unknown hid device")

// virtualUSB is a USBHost fed by software sources: the host window's gamepad and
// keyboard polling, a raw terminal, or an on-board matrix keyboard. Sources
// describe their devices with connect and push wire-format reports.
type virtualUSB struct {
	mu       sync.Mutex
	next     HIDHandle
	devs     map[HIDHandle]*virtualDevice
	onEvent  func(HIDEvent)
	onReport func(HIDHandle, []byte)
}

type virtualDevice struct {
	subClass uint8
	protocol uint8
	open     bool
	boot     bool
	started  bool
}

func newVirtualUSB() *virtualUSB {
	return &virtualUSB{devs: make(map[HIDHandle]*virtualDevice)}
}

func (u *virtualUSB) Attach(onEvent func(HIDEvent), onReport func(HIDHandle, []byte)) {
	u.mu.Lock()
	u.onEvent = onEvent
	u.onReport = onReport
	present := make([]HIDEvent, 0, len(u.devs))
	for h, d := range u.devs {
		present = append(present, HIDEvent{Kind: HIDConnected, Handle: h, SubClass: d.subClass, Protocol: d.protocol})
	}
	u.mu.Unlock()

	if onEvent == nil {
		return
	}
	for _, ev := range present {
		onEvent(ev)
	}
}

func (u *virtualUSB) Open(h HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.devs[h]
	if !ok {
		return ErrUnknownDevice
	}
	d.open = true
	return nil
}

func (u *virtualUSB) SetBootProtocol(h HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.devs[h]
	if !ok || !d.open {
		return ErrUnknownDevice
	}
	d.boot = true
	return nil
}

func (u *virtualUSB) Start(h HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.devs[h]
	if !ok || !d.open {
		return ErrUnknownDevice
	}
	d.started = true
	return nil
}

func (u *virtualUSB) Close(h HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if d, ok := u.devs[h]; ok {
		d.open = false
		d.started = false
	}
	return nil
}

// connect registers a device and announces it.
func (u *virtualUSB) connect(subClass, protocol uint8) HIDHandle {
	u.mu.Lock()
	u.next++
	h := u.next
	u.devs[h] = &virtualDevice{subClass: subClass, protocol: protocol}
	onEvent := u.onEvent
	u.mu.Unlock()

	if onEvent != nil {
		onEvent(HIDEvent{Kind: HIDConnected, Handle: h, SubClass: subClass, Protocol: protocol})
	}
	return h
}

// disconnect forgets a device and announces the removal.
func (u *virtualUSB) disconnect(h HIDHandle) {
	u.mu.Lock()
	_, ok := u.devs[h]
	delete(u.devs, h)
	onEvent := u.onEvent
	u.mu.Unlock()

	if ok && onEvent != nil {
		onEvent(HIDEvent{Kind: HIDDisconnected, Handle: h})
	}
}

// report delivers one input report if the device has been started.
func (u *virtualUSB) report(h HIDHandle, data []byte) bool {
	u.mu.Lock()
	d, ok := u.devs[h]
	started := ok && d.started
	onReport := u.onReport
	u.mu.Unlock()

	if !started || onReport == nil {
		return false
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	onReport(h, cp)
	return true
}
