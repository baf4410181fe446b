package hid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nesport/hal"
)

type fakeUSB struct {
	mu       sync.Mutex
	onEvent  func(hal.HIDEvent)
	onReport func(hal.HIDHandle, []byte)

	opened  map[hal.HIDHandle]int
	booted  map[hal.HIDHandle]int
	started map[hal.HIDHandle]int
	closed  map[hal.HIDHandle]int

	bootErr error
}

func newFakeUSB() *fakeUSB {
	return &fakeUSB{
		opened:  make(map[hal.HIDHandle]int),
		booted:  make(map[hal.HIDHandle]int),
		started: make(map[hal.HIDHandle]int),
		closed:  make(map[hal.HIDHandle]int),
	}
}

func (u *fakeUSB) Attach(onEvent func(hal.HIDEvent), onReport func(hal.HIDHandle, []byte)) {
	u.onEvent, u.onReport = onEvent, onReport
}

func (u *fakeUSB) Open(h hal.HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.opened[h]++
	return nil
}

func (u *fakeUSB) SetBootProtocol(h hal.HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.booted[h]++
	return u.bootErr
}

func (u *fakeUSB) Start(h hal.HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.started[h]++
	return nil
}

func (u *fakeUSB) Close(h hal.HIDHandle) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed[h]++
	return nil
}

func (u *fakeUSB) closeCount(h hal.HIDHandle) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed[h]
}

type gamepadCall struct {
	slot int
	b    Buttons
}

type recordSink struct {
	mu       sync.Mutex
	gamepad  []gamepadCall
	keys     []hal.KeyEvent
	keySlots []int
	pointer  []PointerState
}

func (s *recordSink) GamepadReport(slot int, b Buttons) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gamepad = append(s.gamepad, gamepadCall{slot, b})
}

func (s *recordSink) gamepadCalls() []gamepadCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gamepadCall(nil), s.gamepad...)
}

// stallSink holds the first gamepad report until release is closed.
type stallSink struct {
	*recordSink
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallSink) GamepadReport(slot int, b Buttons) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	s.recordSink.GamepadReport(slot, b)
}

func (s *recordSink) KeyboardReport(slot int, evs []hal.KeyEvent, _ KeyboardReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, evs...)
	s.keySlots = append(s.keySlots, slot)
}

func (s *recordSink) PointerReport(p PointerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = append(s.pointer, p)
}

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *lineLog) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func newTestManager(t *testing.T, cfg Config) (*Manager, *fakeUSB, *recordSink) {
	t.Helper()
	usb := newFakeUSB()
	sink := &recordSink{}
	m := NewManager(usb, sink, cfg)
	m.Attach()
	return m, usb, sink
}

func connect(m *Manager, h hal.HIDHandle, protocol uint8) {
	m.Notify(hal.HIDEvent{Kind: hal.HIDConnected, Handle: h, Protocol: protocol})
	m.Drain()
}

func TestManagerClassifiesAndActivates(t *testing.T) {
	m, usb, _ := newTestManager(t, Config{})
	connect(m, 1, hal.HIDProtocolKeyboard)
	connect(m, 2, hal.HIDProtocolMouse)
	connect(m, 3, hal.HIDProtocolNone)
	connect(m, 4, 0x55)

	devs := m.Devices()
	want := []DeviceInfo{
		{Handle: 1, Class: ClassKeyboard, State: StateActive, Slot: 0},
		{Handle: 2, Class: ClassPointer, State: StateActive, Slot: -1},
		{Handle: 3, Class: ClassGeneric, State: StateActive, Slot: 1},
		{Handle: 4, Class: ClassGeneric, State: StateActive, Slot: 2},
	}
	if len(devs) != len(want) {
		t.Fatalf("Devices() = %+v", devs)
	}
	for i := range want {
		if devs[i] != want[i] {
			t.Fatalf("Devices()[%d] = %+v, want %+v", i, devs[i], want[i])
		}
	}
	for h, boot := range map[hal.HIDHandle]int{1: 1, 2: 1, 3: 1, 4: 0} {
		if usb.opened[h] != 1 || usb.started[h] != 1 || usb.booted[h] != boot {
			t.Fatalf("device %d open/boot/start = %d/%d/%d, want 1/%d/1", h, usb.opened[h], usb.booted[h], usb.started[h], boot)
		}
	}
}

func TestManagerBootProtocolFailureNotFatal(t *testing.T) {
	log := &lineLog{}
	m, usb, _ := newTestManager(t, Config{Logger: log})
	usb.bootErr = errors.New("stall")
	connect(m, 7, hal.HIDProtocolNone)

	devs := m.Devices()
	if len(devs) != 1 || devs[0].State != StateActive {
		t.Fatalf("Devices() = %+v, want one active device", devs)
	}
	if len(log.lines) == 0 {
		t.Fatalf("boot protocol failure was not logged")
	}
}

func TestManagerGenericEndToEnd(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{})
	connect(m, 1, hal.HIDProtocolNone)

	usb.onReport(1, []byte{0, 0, 0b00000001, 0})
	usb.onReport(1, []byte{0, 0, 0})
	usb.onReport(1, []byte{0, 0, 0, 0})

	want := []gamepadCall{{0, ButtonSelect}, {0, 0}}
	if len(sink.gamepad) != len(want) {
		t.Fatalf("gamepad calls = %+v, want %+v", sink.gamepad, want)
	}
	for i := range want {
		if sink.gamepad[i] != want[i] {
			t.Fatalf("gamepad call %d = %+v, want %+v", i, sink.gamepad[i], want[i])
		}
	}
}

func TestManagerDropsReportsBeforeActive(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{})
	m.Notify(hal.HIDEvent{Kind: hal.HIDConnected, Handle: 1})
	usb.onReport(1, []byte{0, 0, 1, 0})
	if len(sink.gamepad) != 0 {
		t.Fatalf("report before activation was delivered")
	}
	m.Drain()
	usb.onReport(1, []byte{0, 0, 1, 0})
	if len(sink.gamepad) != 1 {
		t.Fatalf("report after activation not delivered")
	}
}

func TestManagerDisconnectStopsReportsImmediately(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{})
	connect(m, 1, hal.HIDProtocolNone)
	usb.onReport(1, []byte{0, 0, 0b100, 0})

	m.Notify(hal.HIDEvent{Kind: hal.HIDDisconnected, Handle: 1})
	// The drain task has not run yet.
	usb.onReport(1, []byte{0, 0, 0b1000, 0})
	if n := len(sink.gamepad); n != 1 {
		t.Fatalf("gamepad calls = %d after disconnect, want 1", n)
	}

	m.Drain()
	if usb.closeCount(1) != 1 {
		t.Fatalf("Close() calls = %d, want 1", usb.closeCount(1))
	}
	last := sink.gamepad[len(sink.gamepad)-1]
	if last != (gamepadCall{0, 0}) {
		t.Fatalf("last gamepad call = %+v, want slot 0 released", last)
	}
	if len(m.Devices()) != 0 {
		t.Fatalf("Devices() = %+v after disconnect", m.Devices())
	}
}

func TestManagerReleaseFollowsInFlightReport(t *testing.T) {
	usb := newFakeUSB()
	sink := &stallSink{
		recordSink: &recordSink{},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	m := NewManager(usb, sink, Config{})
	m.Attach()
	connect(m, 1, hal.HIDProtocolNone)

	delivered := make(chan struct{})
	go func() {
		usb.onReport(1, []byte{0, 0, 0b00000001, 0})
		close(delivered)
	}()
	<-sink.entered

	// Unplug while the select press is still on its way to the sink.
	m.Notify(hal.HIDEvent{Kind: hal.HIDDisconnected, Handle: 1})
	drained := make(chan struct{})
	go func() {
		m.Drain()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatalf("close finished while a report was being delivered")
	case <-time.After(20 * time.Millisecond):
	}
	close(sink.release)
	<-delivered
	<-drained

	want := []gamepadCall{{0, ButtonSelect}, {0, 0}}
	got := sink.gamepadCalls()
	if len(got) != len(want) {
		t.Fatalf("gamepad calls = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("gamepad call %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if usb.closeCount(1) != 1 {
		t.Fatalf("Close() calls = %d, want 1", usb.closeCount(1))
	}
}

func TestManagerReportAfterCloseDropped(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{})
	connect(m, 1, hal.HIDProtocolNone)
	m.Notify(hal.HIDEvent{Kind: hal.HIDDisconnected, Handle: 1})
	m.Drain()

	usb.onReport(1, []byte{0, 0, 0b00000010, 0})
	got := sink.gamepadCalls()
	if len(got) != 1 || got[0] != (gamepadCall{0, 0}) {
		t.Fatalf("gamepad calls = %+v, want only the close release", got)
	}
}

func TestManagerCloseExactlyOnceUnderRace(t *testing.T) {
	m, usb, _ := newTestManager(t, Config{QueueDepth: 64})
	connect(m, 1, hal.HIDProtocolNone)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Notify(hal.HIDEvent{Kind: hal.HIDTransferError, Handle: 1})
		}()
		go func() {
			defer wg.Done()
			m.Notify(hal.HIDEvent{Kind: hal.HIDDisconnected, Handle: 1})
		}()
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			m.Drain()
		}
		close(done)
	}()
	wg.Wait()
	<-done
	m.Drain()

	if got := usb.closeCount(1); got != 1 {
		t.Fatalf("Close() calls = %d, want exactly 1", got)
	}
	if got := m.Closed(); got != 1 {
		t.Fatalf("Closed() = %d, want 1", got)
	}
}

func TestManagerDroppedDisconnectIsReaped(t *testing.T) {
	log := &lineLog{}
	m, usb, _ := newTestManager(t, Config{QueueDepth: 1, Logger: log})
	connect(m, 1, hal.HIDProtocolNone)

	m.Notify(hal.HIDEvent{Kind: hal.HIDConnected, Handle: 2})
	m.Notify(hal.HIDEvent{Kind: hal.HIDDisconnected, Handle: 1})
	if m.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", m.Dropped())
	}

	m.Drain()
	if usb.closeCount(1) != 1 {
		t.Fatalf("Close(1) calls = %d, want 1", usb.closeCount(1))
	}
	devs := m.Devices()
	if len(devs) != 1 || devs[0].Handle != 2 || devs[0].Slot != 0 {
		t.Fatalf("Devices() = %+v, want device 2 in the freed slot 0", devs)
	}
}

func TestManagerKeyboardEvents(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{})
	connect(m, 5, hal.HIDProtocolKeyboard)

	usb.onReport(5, []byte{0, 0, 0x04, 0, 0, 0, 0, 0})
	usb.onReport(5, []byte{0, 0, 0x04, 0, 0, 0})
	m.Notify(hal.HIDEvent{Kind: hal.HIDDisconnected, Handle: 5})
	m.Drain()

	if len(sink.keys) != 2 {
		t.Fatalf("key events = %+v, want press then release", sink.keys)
	}
	if !sink.keys[0].Press || sink.keys[0].Rune != 'a' || sink.keys[1].Press || sink.keys[1].Rune != 'a' {
		t.Fatalf("key events = %+v, want press a, release a", sink.keys)
	}
}

func TestManagerPointerAccumulates(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{})
	connect(m, 9, hal.HIDProtocolMouse)

	usb.onReport(9, []byte{1, 10, 4})
	usb.onReport(9, []byte{0, 0xFF, 0xFF})
	if len(sink.pointer) != 2 {
		t.Fatalf("pointer reports = %d, want 2", len(sink.pointer))
	}
	got := sink.pointer[1]
	if got.X != 9 || got.Y != 3 || got.Primary {
		t.Fatalf("pointer = %+v, want X=9 Y=3 released", got)
	}
}

func TestManagerSlotsExhausted(t *testing.T) {
	m, usb, sink := newTestManager(t, Config{QueueDepth: 16})
	for h := hal.HIDHandle(1); h <= MaxSlots+1; h++ {
		connect(m, h, hal.HIDProtocolNone)
	}
	devs := m.Devices()
	if devs[MaxSlots].Slot != -1 {
		t.Fatalf("extra device slot = %d, want -1", devs[MaxSlots].Slot)
	}
	usb.onReport(MaxSlots+1, []byte{0, 0, 1, 0})
	if len(sink.gamepad) != 0 {
		t.Fatalf("report from slotless device delivered")
	}
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	m, usb, _ := newTestManager(t, Config{PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	m.Notify(hal.HIDEvent{Kind: hal.HIDConnected, Handle: 3})
	deadline := time.Now().Add(time.Second)
	for len(m.Devices()) == 0 || m.Devices()[0].State != StateActive {
		if time.Now().After(deadline) {
			t.Fatalf("device never became active")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
	if usb.closeCount(3) != 1 {
		t.Fatalf("Close() calls = %d after Run returned, want 1", usb.closeCount(3))
	}
}
