package device

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/jsphweid/keystream/constants"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/model"
	"github.com/jsphweid/keystream/pipeline"
	"github.com/jsphweid/keystream/util"
)

var _ pipeline.Transport = (*Watcher)(nil)

// input is one enumerable MIDI input port.
type input interface {
	name() string
	listen(recv func([]byte), onErr func(error)) (stop func(), err error)
}

// Watcher keeps every non-virtual MIDI input open and reports the set of
// connected devices whenever it changes. Frames from all of them are passed
// to the sink; choosing which one counts is the pipeline's job.
type Watcher struct {
	list     func() ([]input, error)
	closeDrv func() error
	logger   *slog.Logger
	interval time.Duration
	excluded []string

	mu       sync.Mutex
	sink     pipeline.Sink
	ports    map[string]func()
	reported bool
	cancel   context.CancelFunc
	done     chan struct{}
}

type WatcherOption func(*Watcher)

func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logging.OrDefault(l) }
}

func WithRescanInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithExcluded replaces the port name patterns that are never opened.
func WithExcluded(patterns ...string) WatcherOption {
	return func(w *Watcher) { w.excluded = patterns }
}

// NewWatcher watches the inputs of drv. The watcher owns the driver and
// closes it on Close.
func NewWatcher(drv drivers.Driver, opts ...WatcherOption) *Watcher {
	list := func() ([]input, error) {
		ins, err := drv.Ins()
		if err != nil {
			return nil, err
		}
		res := make([]input, 0, len(ins))
		for _, in := range ins {
			res = append(res, driverInput{in: in})
		}
		return res, nil
	}
	return newWatcher(list, drv.Close, opts...)
}

func newWatcher(list func() ([]input, error), closeDrv func() error, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		list:     list,
		closeDrv: closeDrv,
		logger:   slog.Default(),
		interval: constants.RescanInterval,
		excluded: constants.ExcludedPortPatterns,
		ports:    make(map[string]func()),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Open does a first scan and starts the hot-plug loop. Failing to enumerate
// inputs on the first scan is fatal; later failures are only logged.
func (w *Watcher) Open(ctx context.Context, sink pipeline.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	if w.sink != nil {
		w.mu.Unlock()
		return errors.New("watcher already open")
	}
	w.sink = sink
	w.mu.Unlock()

	if err := w.rescan(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()
	go w.run(loopCtx, w.done)
	return nil
}

// Close stops the loop, closes every port and then the driver.
func (w *Watcher) Close() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	w.mu.Lock()
	for name, stop := range w.ports {
		stop()
		delete(w.ports, name)
	}
	w.mu.Unlock()

	if w.closeDrv == nil {
		return nil
	}
	return errors.Wrap(w.closeDrv(), "closing midi driver")
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.rescan(); err != nil {
				w.logger.Warn("midi rescan failed", "error", err)
			}
		}
	}
}

func (w *Watcher) rescan() error {
	ins, err := w.list()
	if err != nil {
		return errors.Wrap(err, "listing midi inputs")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	changed := !w.reported
	present := make(map[string]bool, len(ins))
	for _, in := range ins {
		name := in.name()
		if w.isExcluded(name) {
			w.logger.Debug("midi input excluded", "device", name)
			continue
		}
		present[name] = true
		if _, ok := w.ports[name]; ok {
			continue
		}
		stop, err := in.listen(w.frameFunc(name), w.errFunc(name))
		if err != nil {
			w.logger.Warn("midi connect failed", "device", name, "error", err)
			delete(present, name)
			continue
		}
		w.ports[name] = stop
		changed = true
		w.logger.Info("midi device connected", "device", name)
	}

	for name, stop := range w.ports {
		if present[name] {
			continue
		}
		stop()
		delete(w.ports, name)
		changed = true
		w.logger.Warn("midi device disappeared", "device", name)
	}

	if changed {
		w.reportLocked()
	}
	return nil
}

func (w *Watcher) reportLocked() {
	w.reported = true
	names := util.GetKeys(w.ports)
	sources := make([]model.Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, model.Source{ID: name, Name: name, State: model.Connected})
	}
	w.sink.HandleSources(sources)
}

func (w *Watcher) frameFunc(name string) func([]byte) {
	sink := w.sink
	return func(b []byte) {
		sink.HandleFrame(model.RawFrame{Bytes: b, SourceID: name, Timestamp: time.Now()})
	}
}

// errFunc drops the port. The listener goroutine must not stop itself, so
// the teardown runs on its own goroutine.
func (w *Watcher) errFunc(name string) func(error) {
	return func(err error) {
		w.logger.Warn("midi listener error", "device", name, "error", err)
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			stop, ok := w.ports[name]
			if !ok {
				return
			}
			stop()
			delete(w.ports, name)
			w.reportLocked()
		}()
	}
}

func (w *Watcher) isExcluded(name string) bool {
	return matchesAny(name, w.excluded)
}

// IsExcluded reports whether a port with this name is skipped by default.
func IsExcluded(name string) bool {
	return matchesAny(name, constants.ExcludedPortPatterns)
}

func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if util.ContainsFold(name, pat) {
			return true
		}
	}
	return false
}

// Connected lists the names of the open ports.
func (w *Watcher) Connected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return util.GetKeys(w.ports)
}

// Inputs lists every input port of drv, excluded ones included.
func Inputs(drv drivers.Driver) ([]string, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "listing midi inputs")
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	sort.Strings(names)
	return names, nil
}

type driverInput struct {
	in drivers.In
}

func (d driverInput) name() string { return d.in.String() }

func (d driverInput) listen(recv func([]byte), onErr func(error)) (func(), error) {
	if !d.in.IsOpen() {
		if err := d.in.Open(); err != nil {
			return nil, errors.Wrapf(err, "open %q", d.in.String())
		}
	}
	stop, err := midi.ListenTo(d.in, func(msg midi.Message, _ int32) {
		recv(msg)
	}, midi.HandleError(onErr))
	if err != nil {
		_ = d.in.Close()
		return nil, errors.Wrapf(err, "listen %q", d.in.String())
	}
	return func() {
		stop()
		_ = d.in.Close()
	}, nil
}
