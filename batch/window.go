// Package batch groups note-ons that land close together into chords.
//
// Every note-on restarts a short flush timer (trailing-edge debounce), so a
// chord played with slightly uneven timing still arrives as one batch. The
// batch is bounded in size; hitting the bound flushes at once. A rate limiter
// drops note-ons from flooding hardware instead of letting them pile up.
package batch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jsphweid/keystream/chord"
	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/constants"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/model"
)

type AddResult uint8

const (
	Batched AddResult = iota
	// Skipped: the event is not a note-on. Note-offs never enter or retract
	// from a batch.
	Skipped
	RateLimited
	// Overflowed: the event filled the batch and it was flushed immediately.
	Overflowed
)

func (r AddResult) String() string {
	switch r {
	case Batched:
		return "batched"
	case Skipped:
		return "skipped"
	case RateLimited:
		return "rate_limited"
	case Overflowed:
		return "overflowed"
	}
	return "unknown"
}

// FlushFunc receives every flushed chord. It is called without any window
// lock held, so it may call Add again.
type FlushFunc func(model.Chord)

type Config struct {
	Window       time.Duration
	MaxBatchSize int
	MaxRate      int
	Strategy     config.Strategy
}

// ConfigFrom picks the window length for the configured strategy.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Window:       cfg.Window(),
		MaxBatchSize: cfg.MaxBatchSize,
		MaxRate:      cfg.MaxBatchRate,
		Strategy:     cfg.Strategy,
	}
}

type Option func(*Window)

func WithScheduler(s Scheduler) Option {
	return func(w *Window) {
		w.sched = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		w.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Window) {
		w.logger = l
	}
}

type Window struct {
	cfg     Config
	onFlush FlushFunc
	sched   Scheduler
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	batch    []model.NoteEvent
	openedAt time.Time
	// gen identifies the live timer; callbacks from older timers are ignored
	gen     uint64
	pending bool
	limiter *rateLimiter
	stopped bool
}

func New(cfg Config, onFlush FlushFunc, opts ...Option) *Window {
	if cfg.MaxBatchSize < 1 {
		cfg.MaxBatchSize = constants.DefaultMaxBatchSize
	}
	if cfg.MaxRate < 1 {
		cfg.MaxRate = constants.DefaultMaxBatchRate
	}
	if cfg.Window <= 0 {
		cfg.Window = constants.DefaultBatchWindow
	}

	w := &Window{
		cfg:     cfg,
		onFlush: onFlush,
		now:     time.Now,
		limiter: newRateLimiter(cfg.MaxRate, constants.RateWindow),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sched == nil {
		if cfg.Strategy == config.Debounce {
			w.sched = NewDebounceScheduler(cfg.Window)
		} else {
			w.sched = NewTimerScheduler(cfg.Window)
		}
	}
	w.logger = logging.OrDefault(w.logger).With("component", "batch")
	w.batch = make([]model.NoteEvent, 0, cfg.MaxBatchSize)
	return w
}

// Add batches a note-on. A forced flush is delivered before Add returns.
func (w *Window) Add(ev model.NoteEvent) AddResult {
	res, c := w.Offer(ev)
	if res == Overflowed {
		w.deliver(c)
	}
	return res
}

// Offer batches ev like Add, but a chord forced out by the size bound is
// returned instead of passed to the flush callback. The caller must publish
// it. Callers holding their own lock use this to deliver after unlocking.
func (w *Window) Offer(ev model.NoteEvent) (AddResult, model.Chord) {
	if ev.Kind != model.NoteOn {
		return Skipped, model.Chord{}
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return Skipped, model.Chord{}
	}

	ok, first := w.limiter.allow(w.now())
	if !ok {
		w.mu.Unlock()
		if first {
			w.logger.Warn("batch rate limit exceeded, dropping note-ons",
				"max_per_second", w.cfg.MaxRate, "note", ev.Note, "source", ev.SourceID)
		}
		return RateLimited, model.Chord{}
	}

	if len(w.batch) == 0 {
		w.openedAt = ev.Timestamp
		if w.openedAt.IsZero() {
			w.openedAt = w.now()
		}
	}
	w.batch = append(w.batch, ev)

	if len(w.batch) >= w.cfg.MaxBatchSize {
		w.gen++
		w.pending = false
		w.sched.Cancel()
		c := w.takeLocked(true)
		w.mu.Unlock()

		w.logger.Debug("batch overflow, forcing flush", "size", w.cfg.MaxBatchSize)
		return Overflowed, c
	}

	w.gen++
	gen := w.gen
	w.pending = true
	w.sched.Schedule(func() { w.expire(gen) })
	w.mu.Unlock()
	return Batched, model.Chord{}
}

// Flush delivers whatever is batched right now.
func (w *Window) Flush() {
	w.mu.Lock()
	w.gen++
	w.pending = false
	w.sched.Cancel()
	if len(w.batch) == 0 {
		w.mu.Unlock()
		return
	}
	c := w.takeLocked(false)
	w.mu.Unlock()
	w.deliver(c)
}

// Stop cancels the timer and discards the batch. Later Adds are skipped.
func (w *Window) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.gen++
	w.pending = false
	w.sched.Cancel()
	w.batch = w.batch[:0]
}

func (w *Window) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batch)
}

// TimerPending reports whether a flush is scheduled.
func (w *Window) TimerPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

func (w *Window) expire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.pending = false
	if len(w.batch) == 0 {
		w.mu.Unlock()
		return
	}
	c := w.takeLocked(false)
	w.mu.Unlock()
	w.deliver(c)
}

// takeLocked empties the batch before anyone sees the chord.
func (w *Window) takeLocked(forced bool) model.Chord {
	c := model.Chord{
		Notes:     chord.Dedupe(w.batch),
		OpenedAt:  w.openedAt,
		FlushedAt: w.now(),
		Forced:    forced,
	}
	w.batch = w.batch[:0]
	w.openedAt = time.Time{}
	return c
}

func (w *Window) deliver(c model.Chord) {
	if w.onFlush != nil {
		w.onFlush(c)
	}
}
