// Package pipeline is the ingestion service: frames come in from a
// transport, are parsed, filtered to the selected source and applied to the
// held-note tracker, then go out to immediate subscribers and into the chord
// window. One Service is built per input session and passed to whoever needs
// it; there is no package-level state.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsphweid/keystream/batch"
	"github.com/jsphweid/keystream/bus"
	"github.com/jsphweid/keystream/chord"
	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/constants"
	"github.com/jsphweid/keystream/latency"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/midi"
	"github.com/jsphweid/keystream/model"
	"github.com/jsphweid/keystream/source"
	"github.com/jsphweid/keystream/tracker"
	"github.com/jsphweid/keystream/util"
)

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithRegistry sets where the service registers its Prometheus collectors.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

func WithMonitor(m *latency.Monitor) Option {
	return func(s *Service) {
		s.monitor = m
	}
}

// WithWindowOptions passes options through to the chord window.
func WithWindowOptions(opts ...batch.Option) Option {
	return func(s *Service) {
		s.windowOpts = append(s.windowOpts, opts...)
	}
}

type Service struct {
	cfg        config.Config
	transport  Transport
	logger     *slog.Logger
	registry   *prometheus.Registry
	monitor    *latency.Monitor
	windowOpts []batch.Option

	bus     *bus.Bus
	tracker *tracker.Tracker
	sources *source.Registry
	window  *batch.Window
	metrics *metrics

	// ingestMu makes the ingestion path the single writer of tracker and
	// window state; transports may deliver from several goroutines.
	ingestMu sync.Mutex
	status   InitStatus
	closed   bool
	shutdown sync.Once
}

func New(cfg config.Config, transport Transport, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		transport: transport,
		tracker:   tracker.New(),
		sources:   source.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	if s.monitor == nil {
		s.monitor = latency.New(
			latency.WithCapacity(cfg.LatencyCapacity),
			latency.WithRegisterer(s.registry),
			latency.WithThreshold(constants.OpIngest, constants.IngestThreshold),
			latency.WithThreshold(constants.OpEndToEnd, cfg.Window()+constants.LatencyBudget/2),
			latency.WithLogger(s.logger),
		)
	}
	s.bus = bus.New(
		bus.WithLogger(s.logger),
		bus.WithFaultHook(func(p bus.Pool) {
			s.metrics.faults.WithLabelValues(string(p)).Inc()
		}),
	)
	windowOpts := append([]batch.Option{batch.WithLogger(s.logger)}, s.windowOpts...)
	s.window = batch.New(batch.ConfigFrom(cfg), s.publishChord, windowOpts...)
	return s
}

// Initialize opens the transport. It fails with an *InitError when there is
// no transport or it does not open within the configured access timeout.
func (s *Service) Initialize(ctx context.Context) error {
	if s.transport == nil {
		return s.initFailed(StatusUnavailable, ErrTransportUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AccessTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- s.transport.Open(ctx, s)
	}()

	select {
	case err := <-errc:
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return s.initFailed(StatusTimeout, ErrAccessTimeout)
			}
			return s.initFailed(StatusUnavailable, errors.Wrapf(ErrTransportUnavailable, "%v", err))
		}
	case <-ctx.Done():
		return s.initFailed(StatusTimeout, errors.Wrapf(ErrAccessTimeout, "after %s", s.cfg.AccessTimeout))
	}

	s.ingestMu.Lock()
	s.status = StatusReady
	s.ingestMu.Unlock()

	s.logger.Info("pipeline ready",
		"strategy", string(s.cfg.Strategy),
		"window", s.cfg.Window(),
		"max_batch_size", s.cfg.MaxBatchSize,
		"max_batch_rate", s.cfg.MaxBatchRate,
	)
	return nil
}

func (s *Service) initFailed(status InitStatus, err error) error {
	s.ingestMu.Lock()
	s.status = status
	s.ingestMu.Unlock()
	s.logger.Error("pipeline initialization failed", "status", string(status), "error", err)
	return &InitError{Status: status, Err: err}
}

func (s *Service) Status() InitStatus {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	return s.status
}

// Shutdown closes the transport and drops any pending batch. Safe to call
// more than once.
func (s *Service) Shutdown() {
	s.shutdown.Do(func() {
		s.ingestMu.Lock()
		s.closed = true
		s.window.Stop()
		s.tracker.ResetAll()
		s.metrics.heldNotes.Set(0)
		s.ingestMu.Unlock()

		if s.transport != nil {
			if err := s.transport.Close(); err != nil {
				s.logger.Warn("closing transport", "error", err)
			}
		}
		s.logger.Info("pipeline stopped")
	})
}

// HandleFrame is the ingestion path for one device frame. A chord forced
// out by the size bound is published after the ingestion lock is released,
// so batched subscribers may feed new events back in.
func (s *Service) HandleFrame(f model.RawFrame) {
	if c, ok := s.ingest(f); ok {
		s.publishChord(c)
	}
}

func (s *Service) ingest(f model.RawFrame) (model.Chord, bool) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	if s.closed {
		return model.Chord{}, false
	}

	start := time.Now()
	ev, status := midi.Parse(f)
	s.metrics.frames.WithLabelValues(status.String()).Inc()
	switch status {
	case midi.FrameMalformed:
		s.logger.Debug("dropping frame", "error", ErrMalformedFrame, "source", f.SourceID, "bytes", f.Bytes)
		return model.Chord{}, false
	case midi.FrameIgnored:
		s.logger.Debug("dropping frame", "error", ErrIgnoredFrame, "source", f.SourceID, "bytes", f.Bytes)
		return model.Chord{}, false
	}

	if !source.Accept(ev, s.sources.Selected()) {
		return model.Chord{}, false
	}

	if ev.Kind == model.NoteOn {
		s.tracker.Press(ev.Note, ev.Velocity)
	} else if !s.tracker.Release(ev.Note) {
		s.logger.Debug("release of a note that was not held", "note", ev.Note, "source", ev.SourceID)
	}
	s.metrics.heldNotes.Set(float64(s.tracker.Len()))

	s.bus.PublishNote(ev)
	s.monitor.Record(constants.OpIngest, time.Since(start))

	res, c := s.window.Offer(ev)
	switch res {
	case batch.RateLimited:
		s.metrics.rateLimited.Inc()
		s.logger.Debug("dropping note-on", "error", ErrRateLimited, "note", ev.Note)
	case batch.Overflowed:
		s.metrics.overflows.Inc()
		s.logger.Debug("flushed early", "error", ErrBatchOverflow)
		return c, true
	}
	return model.Chord{}, false
}

// HandleSources applies a device listing from the transport.
func (s *Service) HandleSources(list []model.Source) {
	s.ingestMu.Lock()
	before := s.sources.Selected()
	ch := s.sources.Update(list)

	if len(ch.Lost) > 0 && (before == "" || ch.Deselected) {
		s.tracker.ResetAll()
		s.metrics.heldNotes.Set(0)
		s.logger.Info("source lost, released all notes", "lost", ch.Lost)
	}
	if s.selectPreferredLocked() {
		ch.Changed = true
	}
	if id, ok := s.sources.AutoSelect(); ok {
		s.logger.Info("auto-selected the only connected source", "source", id)
		ch.Changed = true
	}
	connected := s.sources.Connected()
	all := s.sources.All()
	s.ingestMu.Unlock()

	s.metrics.sourcesOnline.Set(float64(len(connected)))
	if ch.Changed {
		s.bus.PublishSources(all)
	}
}

// selectPreferredLocked honours the configured source once it shows up.
func (s *Service) selectPreferredLocked() bool {
	if s.cfg.Source == "" || s.sources.Selected() != "" {
		return false
	}
	for _, src := range s.sources.Connected() {
		if src.ID == s.cfg.Source || util.ContainsFold(src.Name, s.cfg.Source) {
			if err := s.sources.Select(src.ID); err == nil {
				s.logger.Info("selected configured source", "source", src.ID)
				return true
			}
		}
	}
	return false
}

// SelectSource restricts processing to one source; "" accepts all. Held
// notes are released because they belonged to the previous selection.
func (s *Service) SelectSource(id string) error {
	s.ingestMu.Lock()
	if s.sources.Selected() == id {
		s.ingestMu.Unlock()
		return nil
	}
	if err := s.sources.Select(id); err != nil {
		s.ingestMu.Unlock()
		return err
	}
	s.tracker.ResetAll()
	s.metrics.heldNotes.Set(0)
	all := s.sources.All()
	s.ingestMu.Unlock()

	s.logger.Info("source selected", "source", id)
	s.bus.PublishSources(all)
	return nil
}

// Flush publishes the pending chord now instead of at window expiry.
func (s *Service) Flush() {
	s.window.Flush()
}

func (s *Service) publishChord(c model.Chord) {
	start := time.Now()
	s.bus.PublishChord(c)
	done := time.Now()

	s.metrics.chords.Inc()
	s.monitor.Record(constants.OpFlush, done.Sub(start))
	if !c.OpenedAt.IsZero() {
		s.monitor.Record(constants.OpEndToEnd, done.Sub(c.OpenedAt))
	}
	s.logger.Debug("chord", "notes", chord.Key(append(model.Notes(nil), c.Notes...)), "forced", c.Forced)
}

func (s *Service) SubscribeImmediate(l bus.NoteListener) func() {
	return s.bus.SubscribeImmediate(l)
}

func (s *Service) SubscribeBatched(l bus.ChordListener) func() {
	return s.bus.SubscribeBatched(l)
}

func (s *Service) SubscribeConnectivity(l bus.SourcesListener) func() {
	return s.bus.SubscribeConnectivity(l)
}

func (s *Service) ActiveNotes() []model.ActiveNote {
	return s.tracker.Snapshot()
}

func (s *Service) IsActive(note uint8) bool {
	return s.tracker.IsActive(note)
}

func (s *Service) ConnectedSources() []model.Source {
	return s.sources.Connected()
}

func (s *Service) Sources() []model.Source {
	return s.sources.All()
}

// Source looks up one source by id, connected or not.
func (s *Service) Source(id string) (model.Source, bool) {
	return s.sources.Get(id)
}

func (s *Service) SelectedSource() string {
	return s.sources.Selected()
}

func (s *Service) Latency() *latency.Monitor {
	return s.monitor
}

func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Service) Config() config.Config {
	return s.cfg
}
