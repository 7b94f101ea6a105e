// Package loop drives a force simulation frame by frame: step, render,
// reschedule. Frames come from a Scheduler so the same driver runs off a
// wall-clock timer, a TUI tick message or a test.
package loop

import (
	"sync"
	"time"
)

// DefaultFPS is the frame rate of the wall-clock scheduler.
const DefaultFPS = 60

// FrameHandle identifies a pending frame request.
type FrameHandle uint64

// Scheduler delivers one-shot frame callbacks, in the manner of
// requestAnimationFrame.
type Scheduler interface {
	RequestFrame(fn func(now time.Time)) FrameHandle
	CancelFrame(h FrameHandle)
}

// TickerScheduler runs each requested frame on a timer goroutine after one
// frame interval.
type TickerScheduler struct {
	Interval time.Duration

	mu     sync.Mutex
	next   FrameHandle
	timers map[FrameHandle]*time.Timer
}

// NewTickerScheduler returns a scheduler firing at fps frames per second.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickerScheduler{
		Interval: time.Second / time.Duration(fps),
		timers:   make(map[FrameHandle]*time.Timer),
	}
}

func (s *TickerScheduler) RequestFrame(fn func(time.Time)) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(s.Interval, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if live {
			fn(time.Now())
		}
	})
	return h
}

func (s *TickerScheduler) CancelFrame(h FrameHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending returns the number of frames not yet fired or cancelled.
func (s *TickerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler fires frames only when Advance is called. The TUI
// advances it from its tick message; tests advance it directly.
type ManualScheduler struct {
	mu      sync.Mutex
	next    FrameHandle
	pending map[FrameHandle]func(time.Time)
	order   []FrameHandle
}

// NewManualScheduler returns an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[FrameHandle]func(time.Time))}
}

func (s *ManualScheduler) RequestFrame(fn func(time.Time)) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	s.order = append(s.order, s.next)
	return s.next
}

func (s *ManualScheduler) CancelFrame(h FrameHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// Advance fires every frame requested before the call, in request order,
// and returns how many fired. Frames requested by those callbacks wait for
// the next Advance.
func (s *ManualScheduler) Advance(now time.Time) int {
	s.mu.Lock()
	order := s.order
	s.order = nil
	var due []func(time.Time)
	for _, h := range order {
		if fn, ok := s.pending[h]; ok {
			due = append(due, fn)
			delete(s.pending, h)
		}
	}
	s.mu.Unlock()

	for _, fn := range due {
		fn(now)
	}
	return len(due)
}

// Pending returns the number of frames waiting for Advance.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
