package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"nesport/emu"
	"nesport/emu/testcard"
	"nesport/hal"
	"nesport/hid"
	"nesport/input"
	"nesport/internal/buildinfo"
	"nesport/kernel"
	"nesport/rom"
	"nesport/video"
)

var ErrCorePanic = errors.New("core panicked")

// System wires the platform to an emulation core: the video pipeline, the
// HID manager feeding the dispatcher, and the frame timer.
type System struct {
	h    hal.HAL
	cfg  Config
	log  hal.Logger
	core emu.Core

	vid    *video.Pipeline
	hid    *hid.Manager
	disp   *input.Dispatcher
	router *input.Router
	k      *kernel.System
	ticks  <-chan uint64
	timer  kernel.TimerID
	wake   chan struct{}

	due     atomic.Uint64
	frames  atomic.Uint64
	skipped atomic.Uint64
	snap    atomic.Bool
	pointer atomic.Pointer[hid.PointerState]
}

// New builds and boots the system. A missing framebuffer or cartridge fails
// with the underlying error; the caller decides how to report it.
func New(h hal.HAL, cfg Config) (*System, error) {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.SnapshotScale <= 0 {
		cfg.SnapshotScale = def.SnapshotScale
	}

	s := &System{h: h, cfg: cfg, log: h.Logger(), core: cfg.Core, k: kernel.NewSystem(), wake: make(chan struct{}, 1)}
	if s.core == nil {
		s.core = testcard.New(s.log)
	}
	s.logf("nesport %s, core %s", buildinfo.Short(), s.core.Name())

	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	vid, err := video.NewPipeline(fb, video.Config{
		Width:      cfg.Width,
		Height:     cfg.Height,
		DirtyRects: cfg.DirtyRects,
		Logger:     s.log,
	})
	if err != nil {
		return nil, err
	}
	s.vid = vid

	src := cfg.ROM
	if src == nil {
		src = rom.FlashSource{Flash: h.Flash(), Offset: rom.DefaultFlashOffset}
	}
	img, err := src.ROM()
	if err != nil {
		return nil, err
	}
	if err := s.core.Boot(img, vid); err != nil {
		return nil, fmt.Errorf("boot %s: %w", s.core.Name(), err)
	}

	s.disp = input.NewDispatcher()
	for slot := 0; slot < hid.MaxSlots; slot++ {
		s.disp.Bind(slot, s.core.Inputs(slot))
	}
	s.router = input.NewRouter(s.disp)
	s.router.OnKey = s.onKey
	s.router.OnPointer = func(p hid.PointerState) { s.pointer.Store(&p) }

	if usb := h.USB(); usb != nil {
		s.hid = hid.NewManager(usb, s.router, hid.Config{
			QueueDepth:   cfg.QueueDepth,
			PollInterval: cfg.PollInterval,
			Logger:       s.log,
		})
		s.hid.Attach()
	}

	s.timer, err = s.k.InstallTimer(s.core.RefreshHz(), s.tick)
	if err != nil {
		return nil, fmt.Errorf("frame timer at %d Hz: %w", s.core.RefreshHz(), err)
	}
	if t := h.Time(); t != nil {
		s.ticks = t.Ticks()
	}
	return s, nil
}

func (s *System) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.WriteLineString("app: " + fmt.Sprintf(format, args...))
}

func (s *System) tick() {
	if s.due.Add(1) > 1 {
		s.skipped.Add(1)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *System) onKey(_ int, ev hal.KeyEvent) {
	if ev.Press && ev.Code == hal.KeyF1 && s.cfg.SnapshotDir != "" {
		s.snap.Store(true)
	}
}

// Start runs the HID drain task until ctx is done.
func (s *System) Start(ctx context.Context) {
	if s.hid == nil {
		return
	}
	go func() {
		if err := s.hid.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logf("hid: %v", err)
		}
	}()
}

// Step feeds pending ticks to the timebase and runs a frame when the frame
// timer has fired since the last one. Late frames are coalesced.
func (s *System) Step() error {
drain:
	for s.ticks != nil {
		select {
		case seq, ok := <-s.ticks:
			if !ok {
				s.ticks = nil
				break drain
			}
			s.k.TickTo(seq)
		default:
			break drain
		}
	}
	return s.frame()
}

// Run drives frames from the platform ticks until ctx is done or the tick
// source closes, then shuts the video pipeline down. The timebase runs on
// its own goroutine; frames run here when the frame timer wakes us.
func (s *System) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(ctx)
	defer s.vid.Shutdown()

	done := make(chan error, 1)
	go func() { done <- s.k.Run(ctx, s.ticks) }()
	for {
		select {
		case err := <-done:
			return err
		case <-s.wake:
			if err := s.frame(); err != nil {
				return err
			}
		}
	}
}

func (s *System) frame() (err error) {
	if s.due.Swap(0) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorePanic, r)
		}
	}()
	if err := s.core.Frame(); err != nil {
		return fmt.Errorf("%s frame: %w", s.core.Name(), err)
	}
	s.frames.Add(1)

	if s.snap.Swap(false) {
		name, err := video.SaveSnapshot(s.vid, s.cfg.SnapshotDir, s.cfg.SnapshotScale)
		if err != nil {
			s.logf("snapshot: %v", err)
		} else {
			s.logf("snapshot saved to %s", name)
		}
	}
	return nil
}

// Close stops delivering input and blanks the canvas.
func (s *System) Close() {
	s.k.RemoveTimer(s.timer)
	if s.hid != nil {
		s.hid.CloseAll()
	}
	s.disp.Reset()
	s.vid.Shutdown()
}

// Frames returns how many frames have been drawn.
func (s *System) Frames() uint64 { return s.frames.Load() }

// Skipped returns how many timer periods were coalesced into a later frame.
func (s *System) Skipped() uint64 { return s.skipped.Load() }

// Pointer returns the last pointer state seen.
func (s *System) Pointer() hid.PointerState {
	if p := s.pointer.Load(); p != nil {
		return *p
	}
	return hid.PointerState{}
}

func (s *System) Video() *video.Pipeline { return s.vid }
func (s *System) HID() *hid.Manager      { return s.hid }
func (s *System) Core() emu.Core         { return s.core }
