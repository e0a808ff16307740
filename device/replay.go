package device

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/midi"
	"github.com/jsphweid/keystream/model"
	"github.com/jsphweid/keystream/pipeline"
)

var _ pipeline.Transport = (*Replay)(nil)

// Replay plays the channel messages of a Standard MIDI File into the
// pipeline as if a single device were sending them.
type Replay struct {
	path   string
	speed  float64
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	sent   int
}

type ReplayOption func(*Replay)

func WithReplayLogger(l *slog.Logger) ReplayOption {
	return func(r *Replay) { r.logger = logging.OrDefault(l) }
}

// WithSpeed scales playback. 2 plays twice as fast; 0 sends everything
// without waiting.
func WithSpeed(speed float64) ReplayOption {
	return func(r *Replay) {
		if speed >= 0 {
			r.speed = speed
		}
	}
}

func NewReplay(path string, opts ...ReplayOption) *Replay {
	r := &Replay{
		path:   path,
		speed:  1,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SourceID is the id the file's frames are tagged with.
func (r *Replay) SourceID() string {
	return filepath.Base(r.path)
}

func (r *Replay) Open(ctx context.Context, sink pipeline.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := midi.ReadMidiFile(r.path)
	if err != nil {
		return err
	}
	frames := midi.ChannelFrames(s)

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return errors.New("replay already open")
	}
	playCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	id := r.SourceID()
	sink.HandleSources([]model.Source{{ID: id, Name: id, State: model.Connected}})
	r.logger.Info("replay started", "file", r.path, "frames", len(frames), "speed", r.speed)

	go r.play(playCtx, frames, sink)
	return nil
}

func (r *Replay) play(ctx context.Context, frames []midi.TimedFrame, sink pipeline.Sink) {
	defer close(r.done)
	id := r.SourceID()
	start := time.Now()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for _, f := range frames {
		if r.speed > 0 {
			due := start.Add(time.Duration(float64(f.AtMicros) / r.speed * float64(time.Microsecond)))
			if wait := time.Until(due); wait > 0 {
				timer.Reset(wait)
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
			}
		} else if ctx.Err() != nil {
			return
		}
		sink.HandleFrame(model.RawFrame{Bytes: f.Bytes, SourceID: id, Timestamp: time.Now()})
		r.mu.Lock()
		r.sent++
		r.mu.Unlock()
	}

	sink.HandleSources(nil)
	r.logger.Info("replay finished", "file", r.path, "frames", len(frames), "elapsed", time.Since(start))
}

// Done is closed once the file has been played out or the replay closed.
func (r *Replay) Done() <-chan struct{} {
	return r.done
}

// Sent reports how many frames have been delivered so far.
func (r *Replay) Sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

func (r *Replay) Close() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-r.done
	return nil
}
