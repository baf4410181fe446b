package hid

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"nesport/hal"
	"nesport/kernel"
)

// MaxSlots is the number of controller slots handed to keyboards and
// generic controllers.
const MaxSlots = 4

const (
	DefaultQueueDepth   = 8
	DefaultPollInterval = 50 * time.Millisecond
)

// State is a device lifecycle position.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateActive
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateActive:
		return "active"
	default:
		return "disconnected"
	}
}

// Sink receives decoded reports. Calls for one device arrive in report
// order on the transport's context, except the final release calls made
// when a device closes, which come from the drain task.
type Sink interface {
	GamepadReport(slot int, b Buttons)
	KeyboardReport(slot int, events []hal.KeyEvent, r KeyboardReport)
	PointerReport(p PointerState)
}

// Config tunes the manager.
type Config struct {
	// QueueDepth bounds pending lifecycle notifications.
	QueueDepth int
	// PollInterval bounds how long Run waits before checking ctx.
	PollInterval time.Duration
	Logger       hal.Logger
}

// DeviceInfo is a snapshot of one tracked device.
type DeviceInfo struct {
	Handle hal.HIDHandle
	Class  Class
	State  State
	Slot   int
}

type device struct {
	// deliver is held across every sink call for the device, including the
	// releases sent on close.
	deliver sync.Mutex

	handle  hal.HIDHandle
	class   Class
	state   State
	slot    int
	closing bool
	kbd     keyboardState
}

// Manager tracks HID devices on a USB host and routes their reports.
//
// Lifecycle notifications are queued from the transport callback and handled
// by Run; reports are decoded directly on the transport callback.
type Manager struct {
	usb  hal.USBHost
	sink Sink
	log  hal.Logger
	poll time.Duration

	queue *kernel.Mailbox[hal.HIDEvent]

	mu      sync.Mutex
	devs    map[hal.HIDHandle]*device
	slots   [MaxSlots]bool
	pointer PointerState

	closed  atomic.Uint64
	dropped atomic.Uint64
}

// NewManager returns a manager bound to usb. Call Attach to start receiving
// notifications and Run to process them.
func NewManager(usb hal.USBHost, sink Sink, cfg Config) *Manager {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Manager{
		usb:   usb,
		sink:  sink,
		log:   cfg.Logger,
		poll:  cfg.PollInterval,
		queue: kernel.NewMailbox[hal.HIDEvent](cfg.QueueDepth),
		devs:  make(map[hal.HIDHandle]*device),
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.log == nil {
		return
	}
	m.log.WriteLineString("hid: " + fmt.Sprintf(format, args...))
}

// Attach installs the manager's callbacks on the USB host.
func (m *Manager) Attach() {
	m.usb.Attach(m.Notify, m.HandleReport)
}

// Notify is the transport's lifecycle callback. It never blocks: a full
// queue drops the notification. Disconnects and transfer errors stop report
// delivery before they are queued.
func (m *Manager) Notify(ev hal.HIDEvent) {
	if ev.Kind == hal.HIDDisconnected || ev.Kind == hal.HIDTransferError {
		m.mu.Lock()
		if d, ok := m.devs[ev.Handle]; ok {
			d.closing = true
		}
		m.mu.Unlock()
	}
	if !m.queue.TrySend(ev) {
		m.dropped.Add(1)
		m.logf("queue full, dropped %s for device %d", ev.Kind, ev.Handle)
	}
}

// Run drains lifecycle notifications until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if ev, ok := m.queue.RecvTimeout(m.poll); ok {
			m.handle(ev)
		}
		m.reap()
		if err := ctx.Err(); err != nil {
			m.CloseAll()
			return err
		}
	}
}

// Drain handles every queued notification without waiting.
func (m *Manager) Drain() {
	for {
		ev, ok := m.queue.TryRecv()
		if !ok {
			break
		}
		m.handle(ev)
	}
	m.reap()
}

func (m *Manager) handle(ev hal.HIDEvent) {
	switch ev.Kind {
	case hal.HIDConnected:
		m.connect(ev)
	case hal.HIDDisconnected, hal.HIDTransferError:
		m.mu.Lock()
		if d, ok := m.devs[ev.Handle]; ok {
			d.closing = true
		}
		m.mu.Unlock()
		m.reap()
	default:
		m.logf("ignored %s for device %d", ev.Kind, ev.Handle)
	}
}

func (m *Manager) connect(ev hal.HIDEvent) {
	// Free the slots of devices already on their way out.
	m.reap()
	class, boot := Classify(ev.Protocol)

	m.mu.Lock()
	if _, ok := m.devs[ev.Handle]; ok {
		m.mu.Unlock()
		return
	}
	d := &device{handle: ev.Handle, class: class, state: StateConnecting, slot: -1}
	m.devs[ev.Handle] = d
	m.mu.Unlock()

	if err := m.usb.Open(ev.Handle); err != nil {
		m.logf("open device %d: %v", ev.Handle, err)
		m.mu.Lock()
		delete(m.devs, ev.Handle)
		m.mu.Unlock()
		return
	}
	m.setState(d, StateOpen)

	if boot {
		if err := m.usb.SetBootProtocol(ev.Handle); err != nil {
			m.logf("device %d: boot protocol: %v", ev.Handle, err)
		}
	}

	if class != ClassPointer {
		m.mu.Lock()
		d.slot = m.takeSlot()
		m.mu.Unlock()
		if d.slot < 0 {
			m.logf("device %d: no free controller slot", ev.Handle)
		}
	}

	if err := m.usb.Start(ev.Handle); err != nil {
		m.logf("start device %d: %v", ev.Handle, err)
		m.mu.Lock()
		d.closing = true
		m.mu.Unlock()
		m.reap()
		return
	}

	m.mu.Lock()
	if !d.closing {
		d.state = StateActive
	}
	m.mu.Unlock()
	m.logf("device %d active: %s slot %d", ev.Handle, class, d.slot)
}

func (m *Manager) setState(d *device, s State) {
	m.mu.Lock()
	d.state = s
	m.mu.Unlock()
}

// takeSlot claims the lowest free slot. Callers hold m.mu.
func (m *Manager) takeSlot() int {
	for i, used := range m.slots {
		if !used {
			m.slots[i] = true
			return i
		}
	}
	return -1
}

// reap closes every device marked closing. A device leaves the map under the
// lock, so each is closed exactly once.
func (m *Manager) reap() {
	m.mu.Lock()
	var gone []*device
	var releases [][]hal.KeyEvent
	for h, d := range m.devs {
		if !d.closing {
			continue
		}
		delete(m.devs, h)
		if d.slot >= 0 {
			m.slots[d.slot] = false
		}
		d.state = StateDisconnected
		gone = append(gone, d)
		releases = append(releases, d.kbd.release())
	}
	m.mu.Unlock()

	for i, d := range gone {
		if err := m.usb.Close(d.handle); err != nil {
			m.logf("close device %d: %v", d.handle, err)
		}
		m.closed.Add(1)
		m.logf("device %d closed", d.handle)

		if m.sink == nil || d.slot < 0 {
			continue
		}
		d.deliver.Lock()
		switch d.class {
		case ClassGeneric:
			m.sink.GamepadReport(d.slot, 0)
		case ClassKeyboard:
			if len(releases[i]) > 0 {
				m.sink.KeyboardReport(d.slot, releases[i], KeyboardReport{})
			}
		}
		d.deliver.Unlock()
	}
}

// CloseAll closes every tracked device.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	for _, d := range m.devs {
		d.closing = true
	}
	m.mu.Unlock()
	m.reap()
}

// HandleReport is the transport's report callback. Reports for devices that
// are not active, or are closing, are dropped before decoding. The check is
// repeated under the device's delivery lock, which close also takes before
// sending releases.
func (m *Manager) HandleReport(h hal.HIDHandle, data []byte) {
	m.mu.Lock()
	d, ok := m.devs[h]
	m.mu.Unlock()
	if !ok {
		return
	}

	d.deliver.Lock()
	defer d.deliver.Unlock()

	m.mu.Lock()
	if d.closing || d.state != StateActive {
		m.mu.Unlock()
		return
	}
	class, slot := d.class, d.slot

	switch class {
	case ClassKeyboard:
		r, ok := DecodeKeyboard(data)
		if !ok {
			m.mu.Unlock()
			m.logf("device %d: short keyboard report (%d bytes)", h, len(data))
			return
		}
		evs := d.kbd.update(r)
		m.mu.Unlock()
		if m.sink != nil && slot >= 0 {
			m.sink.KeyboardReport(slot, evs, r)
		}

	case ClassPointer:
		if !m.pointer.Apply(data) {
			m.mu.Unlock()
			m.logf("device %d: short pointer report (%d bytes)", h, len(data))
			return
		}
		p := m.pointer
		m.mu.Unlock()
		if m.sink != nil {
			m.sink.PointerReport(p)
		}

	default:
		m.mu.Unlock()
		b, ok := DecodeGeneric(data)
		if !ok {
			m.logf("device %d: short report (%d bytes)", h, len(data))
			return
		}
		if m.sink != nil && slot >= 0 {
			m.sink.GamepadReport(slot, b)
		}
	}
}

// Devices returns the tracked devices ordered by handle.
func (m *Manager) Devices() []DeviceInfo {
	m.mu.Lock()
	out := make([]DeviceInfo, 0, len(m.devs))
	for _, d := range m.devs {
		out = append(out, DeviceInfo{Handle: d.handle, Class: d.class, State: d.state, Slot: d.slot})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Closed returns how many devices have been closed.
func (m *Manager) Closed() uint64 { return m.closed.Load() }

// Dropped returns how many notifications were lost to a full queue.
func (m *Manager) Dropped() uint64 { return m.dropped.Load() }
