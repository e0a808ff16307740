// Package latency times critical-path operations. Each named operation keeps
// a bounded window of recent samples; stats are computed on demand. Nothing
// here changes pipeline behaviour, it only reports.
package latency

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/jsphweid/keystream/constants"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/util"
)

type Stats struct {
	Count int
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	P95   time.Duration
}

type Option func(*Monitor)

func WithCapacity(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithThreshold makes the monitor warn whenever name takes longer than d.
func WithThreshold(name string, d time.Duration) Option {
	return func(m *Monitor) {
		m.thresholds[name] = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithRegisterer exports every sample to a histogram on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Monitor) {
		m.reg = reg
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

type Monitor struct {
	capacity   int
	thresholds map[string]time.Duration
	logger     *slog.Logger
	reg        prometheus.Registerer
	hist       *prometheus.HistogramVec
	now        func() time.Time

	mu     sync.Mutex
	series map[string]*ring
	starts map[string]time.Time
}

func New(opts ...Option) *Monitor {
	m := &Monitor{
		capacity:   constants.DefaultLatencyCapacity,
		thresholds: make(map[string]time.Duration),
		now:        time.Now,
		series:     make(map[string]*ring),
		starts:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDefault(m.logger).With("component", "latency")
	if m.reg != nil {
		m.hist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keystream_operation_duration_seconds",
			Help:    "Duration of latency-sensitive pipeline operations in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .002, .005, .01, .015, .02, .05, .1},
		}, []string{"operation"})
		m.reg.MustRegister(m.hist)
	}
	return m
}

// Start marks the beginning of name. A second Start before End restarts it.
func (m *Monitor) Start(name string) {
	t := m.now()
	m.mu.Lock()
	m.starts[name] = t
	m.mu.Unlock()
}

// End records the time since the matching Start. It reports false when
// there was no Start.
func (m *Monitor) End(name string) (time.Duration, bool) {
	t := m.now()
	m.mu.Lock()
	start, ok := m.starts[name]
	if ok {
		delete(m.starts, name)
	}
	m.mu.Unlock()
	if !ok {
		return 0, false
	}
	d := t.Sub(start)
	m.Record(name, d)
	return d, true
}

// Measure is the defer-friendly form: defer m.Measure("op")().
func (m *Monitor) Measure(name string) func() {
	start := m.now()
	return func() {
		m.Record(name, m.now().Sub(start))
	}
}

func (m *Monitor) Record(name string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	r, ok := m.series[name]
	if !ok {
		r = newRing(m.capacity)
		m.series[name] = r
	}
	r.push(d)
	m.mu.Unlock()

	if m.hist != nil {
		m.hist.WithLabelValues(name).Observe(d.Seconds())
	}
	if limit, ok := m.thresholds[name]; ok && d > limit {
		m.logger.Warn("latency threshold exceeded",
			"operation", name, "duration", d, "threshold", limit)
	}
}

func (m *Monitor) Stats(name string) Stats {
	m.mu.Lock()
	r, ok := m.series[name]
	var samples []time.Duration
	if ok {
		samples = r.values()
	}
	m.mu.Unlock()
	return compute(samples)
}

// All returns stats for every operation seen so far.
func (m *Monitor) All() map[string]Stats {
	m.mu.Lock()
	names := maps.Keys(m.series)
	m.mu.Unlock()

	res := make(map[string]Stats, len(names))
	for _, name := range names {
		res[name] = m.Stats(name)
	}
	return res
}

func (m *Monitor) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := maps.Keys(m.series)
	slices.Sort(names)
	return names
}

func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = make(map[string]*ring)
	m.starts = make(map[string]time.Time)
}

func compute(samples []time.Duration) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	slices.Sort(samples)
	return Stats{
		Count: len(samples),
		Avg:   time.Duration(util.Sum(samples) / uint64(len(samples))),
		Min:   samples[0],
		Max:   samples[len(samples)-1],
		P95:   percentile(samples, 0.95),
	}
}

// percentile uses nearest rank on sorted samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted))))
	rank = util.Clamp(rank, 1, len(sorted))
	return sorted[rank-1]
}

// ring keeps the newest cap samples.
type ring struct {
	buf  []time.Duration
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]time.Duration, capacity)}
}

func (r *ring) push(d time.Duration) {
	r.buf[r.next] = d
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// values copies the samples, oldest first.
func (r *ring) values() []time.Duration {
	if !r.full {
		return append([]time.Duration(nil), r.buf[:r.next]...)
	}
	res := make([]time.Duration, 0, len(r.buf))
	res = append(res, r.buf[r.next:]...)
	return append(res, r.buf[:r.next]...)
}
