package kernel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// TickHz is the timebase rate: one tick per millisecond.
const TickHz = 1000

var ErrBadRate = errors.New("timer rate out of range")

// TimerID identifies an installed timer.
type TimerID uint32

type timer struct {
	id     TimerID
	period uint64
	next   uint64
	fn     func()
}

// System is the emulator's timebase: a tick counter fed by the platform and
// periodic timers that fire from it.
type System struct {
	ticks atomic.Uint64

	mu     sync.Mutex
	nextID TimerID
	timers []*timer
}

// NewSystem creates a timebase at tick zero.
func NewSystem() *System {
	return &System{}
}

// Ticks returns the current tick count (1ms per tick).
func (s *System) Ticks() uint64 {
	return s.ticks.Load()
}

// InstallTimer calls fn hz times per second of ticks, starting one period
// from now. Rates that do not divide the timebase are rounded to the nearest
// whole tick.
func (s *System) InstallTimer(hz int, fn func()) (TimerID, error) {
	if hz <= 0 || hz > TickHz || fn == nil {
		return 0, ErrBadRate
	}
	period := uint64((TickHz + hz/2) / hz)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.timers = append(s.timers, &timer{
		id:     s.nextID,
		period: period,
		next:   s.ticks.Load() + period,
		fn:     fn,
	})
	return s.nextID, nil
}

// RemoveTimer uninstalls a timer. Unknown ids are ignored.
func (s *System) RemoveTimer(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.timers {
		if t.id == id {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// TickTo advances the timebase to seq and runs every timer that came due, in
// installation order. Callbacks run on the caller's goroutine without the
// timer lock held. A timer that missed several periods fires once.
func (s *System) TickTo(seq uint64) {
	if seq <= s.ticks.Load() {
		return
	}
	s.ticks.Store(seq)

	s.mu.Lock()
	var due []func()
	for _, t := range s.timers {
		if seq < t.next {
			continue
		}
		due = append(due, t.fn)
		t.next += t.period
		if t.next <= seq {
			t.next = seq + t.period
		}
	}
	s.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// Run feeds ticks into the timebase until ctx is done or ticks is closed.
func (s *System) Run(ctx context.Context, ticks <-chan uint64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seq, ok := <-ticks:
			if !ok {
				return nil
			}
			s.TickTo(seq)
		}
	}
}
