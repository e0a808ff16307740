// Package bus fans pipeline output out to subscribers. There are three
// independent pools: immediate note events, batched chords and source
// connectivity. A subscriber that panics is logged and skipped; it never
// stops delivery to the others.
package bus

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/model"
)

var ErrSubscriberFault = errors.New("subscriber fault")

type NoteListener interface {
	OnNote(model.NoteEvent)
}

type ChordListener interface {
	OnChord(model.Chord)
}

type SourcesListener interface {
	OnSources([]model.Source)
}

// NoteListenerFunc adapts a func. Funcs have no identity, so the bus treats
// every subscription of one as distinct.
type NoteListenerFunc func(model.NoteEvent)

func (f NoteListenerFunc) OnNote(ev model.NoteEvent) { f(ev) }

type ChordListenerFunc func(model.Chord)

func (f ChordListenerFunc) OnChord(c model.Chord) { f(c) }

type SourcesListenerFunc func([]model.Source)

func (f SourcesListenerFunc) OnSources(s []model.Source) { f(s) }

type Pool string

const (
	Immediate    Pool = "immediate"
	Batched      Pool = "batched"
	Connectivity Pool = "connectivity"
)

type Option func(*Bus)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// WithFaultHook is called once per recovered subscriber panic.
func WithFaultHook(f func(Pool)) Option {
	return func(b *Bus) {
		b.onFault = f
	}
}

type Bus struct {
	logger  *slog.Logger
	onFault func(Pool)

	immediate    *registry[NoteListener]
	batched      *registry[ChordListener]
	connectivity *registry[SourcesListener]
}

func New(opts ...Option) *Bus {
	b := &Bus{
		immediate:    newRegistry[NoteListener](),
		batched:      newRegistry[ChordListener](),
		connectivity: newRegistry[SourcesListener](),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrDefault(b.logger).With("component", "bus")
	return b
}

// SubscribeImmediate registers l for every accepted note event. The returned
// func removes it. Subscribing the same pointer listener twice is a no-op.
// Func adapters are never deduplicated: each call adds a new subscription,
// so keep the unsubscribe func rather than subscribing again.
func (b *Bus) SubscribeImmediate(l NoteListener) func() {
	return b.immediate.add(l)
}

// SubscribeBatched registers l for every flushed chord. Deduplication works
// as in SubscribeImmediate: pointer listeners only, never func adapters.
func (b *Bus) SubscribeBatched(l ChordListener) func() {
	return b.batched.add(l)
}

// SubscribeConnectivity registers l for source list changes, deduplicated
// as in SubscribeImmediate.
func (b *Bus) SubscribeConnectivity(l SourcesListener) func() {
	return b.connectivity.add(l)
}

func (b *Bus) PublishNote(ev model.NoteEvent) {
	for _, l := range b.immediate.snapshot() {
		b.guard(Immediate, func() { l.OnNote(ev) })
	}
}

func (b *Bus) PublishChord(c model.Chord) {
	for _, l := range b.batched.snapshot() {
		cp := c
		cp.Notes = append(model.Notes(nil), c.Notes...)
		b.guard(Batched, func() { l.OnChord(cp) })
	}
}

func (b *Bus) PublishSources(sources []model.Source) {
	for _, l := range b.connectivity.snapshot() {
		cp := append([]model.Source(nil), sources...)
		b.guard(Connectivity, func() { l.OnSources(cp) })
	}
}

func (b *Bus) Len(p Pool) int {
	switch p {
	case Immediate:
		return b.immediate.len()
	case Batched:
		return b.batched.len()
	case Connectivity:
		return b.connectivity.len()
	}
	return 0
}

func (b *Bus) guard(p Pool, call func()) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Wrap(ErrSubscriberFault, fmt.Sprint(r))
			b.logger.Error("subscriber panicked", "pool", string(p), "error", err)
			if b.onFault != nil {
				b.onFault(p)
			}
		}
	}()
	call()
}

type subscription[L any] struct {
	id       uuid.UUID
	listener L
}

// registry keeps subscribers in subscription order.
type registry[L any] struct {
	mu   sync.RWMutex
	subs []subscription[L]
}

func newRegistry[L any]() *registry[L] {
	return &registry[L]{}
}

func (r *registry[L]) add(l L) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if sameListener(s.listener, l) {
			return r.remover(s.id)
		}
	}
	id := uuid.New()
	r.subs = append(r.subs, subscription[L]{id: id, listener: l})
	return r.remover(id)
}

func (r *registry[L]) remover(id uuid.UUID) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *registry[L]) snapshot() []L {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]L, len(r.subs))
	for i, s := range r.subs {
		res[i] = s.listener
	}
	return res
}

func (r *registry[L]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// sameListener matches pointer listeners by address. Func adapters have no
// identity in Go and are always distinct.
func sameListener(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if va.Kind() != reflect.Pointer {
		return false
	}
	return va.Pointer() == vb.Pointer()
}
