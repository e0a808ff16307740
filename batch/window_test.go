package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/model"
)

// manualScheduler only fires when told to.
type manualScheduler struct {
	f         func()
	scheduled int
	canceled  int
}

func (m *manualScheduler) Schedule(f func()) {
	m.f = f
	m.scheduled++
}

func (m *manualScheduler) Cancel() {
	m.f = nil
	m.canceled++
}

func (m *manualScheduler) Fire() {
	f := m.f
	m.f = nil
	if f != nil {
		f()
	}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recorder struct {
	mu     sync.Mutex
	chords []model.Chord
}

func (r *recorder) flush(c model.Chord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chords = append(r.chords, c)
}

func (r *recorder) all() []model.Chord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Chord(nil), r.chords...)
}

func on(note uint8) model.NoteEvent {
	return model.NoteEvent{Kind: model.NoteOn, Note: note, Velocity: 100, SourceID: "kbd"}
}

func off(note uint8) model.NoteEvent {
	return model.NoteEvent{Kind: model.NoteOff, Note: note, SourceID: "kbd"}
}

func newTestWindow(cfg Config) (*Window, *manualScheduler, *fakeClock, *recorder) {
	sched := &manualScheduler{}
	clock := &fakeClock{t: time.Unix(100, 0)}
	rec := &recorder{}
	w := New(cfg, rec.flush,
		WithScheduler(sched),
		WithClock(clock.Now),
		WithLogger(logging.Discard()),
	)
	return w, sched, clock, rec
}

func defaultConfig() Config {
	return Config{Window: 10 * time.Millisecond, MaxBatchSize: 128, MaxRate: 1000}
}

func TestChordWithinWindowFlushesOnce(t *testing.T) {
	orders := [][]uint8{{60, 64, 67}, {67, 60, 64}, {64, 67, 60}}

	for _, order := range orders {
		w, sched, _, rec := newTestWindow(defaultConfig())
		for _, n := range order {
			assert.Equal(t, Batched, w.Add(on(n)))
		}
		assert.Empty(t, rec.all())

		sched.Fire()

		chords := rec.all()
		require.Len(t, chords, 1)
		assert.Equal(t, model.Notes{60, 64, 67}, chords[0].Notes)
		assert.False(t, chords[0].Forced)
		assert.Equal(t, 0, w.Pending())
	}
}

func TestEveryNoteOnRestartsTheTimer(t *testing.T) {
	w, sched, _, rec := newTestWindow(defaultConfig())

	w.Add(on(60))
	stale := sched.f
	w.Add(on(64))
	assert.Equal(t, 2, sched.scheduled)

	// the replaced timer must not flush
	stale()
	assert.Empty(t, rec.all())
	assert.True(t, w.TimerPending())

	sched.Fire()
	require.Len(t, rec.all(), 1)
	assert.False(t, w.TimerPending())
}

func TestOfferReturnsForcedChord(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxBatchSize = 3
	w, sched, _, rec := newTestWindow(cfg)

	res, c := w.Offer(on(64))
	assert.Equal(t, Batched, res)
	assert.Empty(t, c.Notes)
	w.Offer(on(60))
	res, c = w.Offer(on(67))

	assert.Equal(t, Overflowed, res)
	assert.True(t, c.Forced)
	assert.Equal(t, model.Notes{60, 64, 67}, c.Notes)
	assert.Empty(t, rec.all())
	assert.Zero(t, w.Pending())

	sched.Fire()
	assert.Empty(t, rec.all())

	res, _ = w.Offer(off(60))
	assert.Equal(t, Skipped, res)
}

func TestOverflowForcesFlushBeforeTimer(t *testing.T) {
	w, sched, _, rec := newTestWindow(defaultConfig())

	var results []AddResult
	for i := 0; i < 130; i++ {
		results = append(results, w.Add(on(uint8(i%128))))
	}

	chords := rec.all()
	require.Len(t, chords, 1)
	assert.True(t, chords[0].Forced)
	assert.Len(t, chords[0].Notes, 128)
	assert.Equal(t, Overflowed, results[127])
	assert.Equal(t, 1, sched.canceled)
	assert.Equal(t, 2, w.Pending())

	sched.Fire()
	chords = rec.all()
	require.Len(t, chords, 2)
	assert.Equal(t, model.Notes{0, 1}, chords[1].Notes)
}

func TestRateLimitDropsUntilWindowResets(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRate = 3
	w, sched, clock, rec := newTestWindow(cfg)

	assert.Equal(t, Batched, w.Add(on(60)))
	assert.Equal(t, Batched, w.Add(on(62)))
	assert.Equal(t, Batched, w.Add(on(64)))
	assert.Equal(t, RateLimited, w.Add(on(65)))
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, RateLimited, w.Add(on(67)))

	sched.Fire()
	require.Len(t, rec.all(), 1)
	assert.Equal(t, model.Notes{60, 62, 64}, rec.all()[0].Notes)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, Batched, w.Add(on(69)))
	sched.Fire()
	require.Len(t, rec.all(), 2)
	assert.Equal(t, model.Notes{69}, rec.all()[1].Notes)
}

func TestNoteOffDoesNotRetract(t *testing.T) {
	w, sched, _, rec := newTestWindow(defaultConfig())

	w.Add(on(60))
	assert.Equal(t, Skipped, w.Add(off(60)))
	sched.Fire()

	require.Len(t, rec.all(), 1)
	assert.Equal(t, model.Notes{60}, rec.all()[0].Notes)
}

func TestNoteOffAloneNeverFlushes(t *testing.T) {
	w, sched, _, rec := newTestWindow(defaultConfig())
	w.Add(off(60))
	assert.Equal(t, 0, sched.scheduled)
	sched.Fire()
	assert.Empty(t, rec.all())
}

func TestEmptyBatchAtExpiryIsSilent(t *testing.T) {
	w, sched, _, rec := newTestWindow(defaultConfig())

	w.Add(on(60))
	stale := sched.f
	w.Flush()
	require.Len(t, rec.all(), 1)

	stale()
	w.expire(w.gen)
	assert.Len(t, rec.all(), 1)
}

func TestFlushCallbackMayAddAgain(t *testing.T) {
	sched := &manualScheduler{}
	var w *Window
	var flushed []model.Notes
	w = New(defaultConfig(), func(c model.Chord) {
		flushed = append(flushed, c.Notes)
		if len(flushed) == 1 {
			w.Add(on(72))
		}
	}, WithScheduler(sched), WithLogger(logging.Discard()))

	w.Add(on(60))
	sched.Fire()
	assert.Equal(t, 1, w.Pending())

	sched.Fire()
	assert.Equal(t, []model.Notes{{60}, {72}}, flushed)
}

func TestStopDiscards(t *testing.T) {
	w, sched, _, rec := newTestWindow(defaultConfig())
	w.Add(on(60))
	w.Stop()

	sched.Fire()
	assert.Empty(t, rec.all())
	assert.Equal(t, Skipped, w.Add(on(62)))
}

func TestOpenedAtIsFirstEvent(t *testing.T) {
	w, sched, clock, rec := newTestWindow(defaultConfig())
	first := on(60)
	first.Timestamp = clock.Now()
	w.Add(first)
	clock.Advance(4 * time.Millisecond)
	second := on(64)
	second.Timestamp = clock.Now()
	w.Add(second)
	clock.Advance(10 * time.Millisecond)
	sched.Fire()

	c := rec.all()[0]
	assert.Equal(t, first.Timestamp, c.OpenedAt)
	assert.Equal(t, 14*time.Millisecond, c.FlushedAt.Sub(c.OpenedAt))
}

func TestRealTimerFlushes(t *testing.T) {
	rec := &recorder{}
	w := New(defaultConfig(), rec.flush, WithLogger(logging.Discard()))

	w.Add(on(60))
	w.Add(on(64))
	w.Add(on(67))

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, model.Notes{60, 64, 67}, rec.all()[0].Notes)
}

func TestDebounceStrategyFlushes(t *testing.T) {
	rec := &recorder{}
	cfg := ConfigFrom(config.Config{
		Strategy:       config.Debounce,
		BatchWindow:    10 * time.Millisecond,
		DebounceWindow: 20 * time.Millisecond,
		MaxBatchSize:   128,
		MaxBatchRate:   1000,
	})
	assert.Equal(t, 20*time.Millisecond, cfg.Window)

	w := New(cfg, rec.flush, WithLogger(logging.Discard()))
	w.Add(on(48))
	w.Add(on(55))

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, model.Notes{48, 55}, rec.all()[0].Notes)
}
