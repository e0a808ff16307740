package batch

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Scheduler runs one deferred callback. Each Schedule replaces whatever was
// pending; Cancel drops it.
type Scheduler interface {
	Schedule(f func())
	Cancel()
}

type timerScheduler struct {
	mu    sync.Mutex
	after time.Duration
	timer *time.Timer
}

// NewTimerScheduler fires f once d has passed since the latest Schedule.
func NewTimerScheduler(d time.Duration) Scheduler {
	return &timerScheduler{after: d}
}

func (s *timerScheduler) Schedule(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.after, f)
}

func (s *timerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// debounceScheduler is the legacy fixed debounce path.
type debounceScheduler struct {
	mu        sync.Mutex
	debounced func(func())
	gen       uint64
}

func NewDebounceScheduler(d time.Duration) Scheduler {
	return &debounceScheduler{debounced: debounce.New(d)}
}

func (s *debounceScheduler) Schedule(f func()) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.debounced(func() {
		s.mu.Lock()
		live := gen == s.gen
		s.mu.Unlock()
		if live {
			f()
		}
	})
}

// Cancel cannot stop the debounce timer itself, it only makes the pending
// callback a no-op.
func (s *debounceScheduler) Cancel() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}
