// Package source tracks connected input devices and which one is selected.
package source

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/jsphweid/keystream/model"
)

var ErrUnknownSource = errors.New("unknown source")

// Accept is the hot-path filter: with nothing selected every source passes.
func Accept(ev model.NoteEvent, selected string) bool {
	return selected == "" || ev.SourceID == selected
}

type Registry struct {
	mu       sync.RWMutex
	sources  map[string]model.Source
	order    []string
	selected string
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]model.Source)}
}

// Change describes what an Update did.
type Change struct {
	Changed bool
	// Lost lists sources that went from connected to disconnected.
	Lost []string
	// Deselected is set when the selected source was lost.
	Deselected bool
}

// Update applies a full device listing from the transport. Sources missing
// from the listing are kept and marked disconnected.
func (r *Registry) Update(list []model.Source) Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ch Change
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s.ID] = true
		old, ok := r.sources[s.ID]
		if !ok {
			r.order = append(r.order, s.ID)
			ch.Changed = true
		} else if old != s {
			ch.Changed = true
		}
		if ok && old.State == model.Connected && s.State == model.Disconnected {
			ch.Lost = append(ch.Lost, s.ID)
		}
		r.sources[s.ID] = s
	}
	for _, id := range r.order {
		s := r.sources[id]
		if seen[id] || s.State == model.Disconnected {
			continue
		}
		s.State = model.Disconnected
		r.sources[id] = s
		ch.Changed = true
		ch.Lost = append(ch.Lost, id)
	}

	if r.selected != "" && r.sources[r.selected].State != model.Connected {
		r.selected = ""
		ch.Deselected = true
	}
	return ch
}

// Select makes id the only source whose events are processed; "" clears the
// selection.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if _, ok := r.sources[id]; !ok {
			return errors.Wrapf(ErrUnknownSource, "select %q", id)
		}
	}
	r.selected = id
	return nil
}

func (r *Registry) Selected() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// AutoSelect picks the only connected source when nothing is selected.
func (r *Registry) AutoSelect() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected != "" {
		return "", false
	}
	var only string
	n := 0
	for _, id := range r.order {
		if r.sources[id].State == model.Connected {
			only = id
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	r.selected = only
	return only, true
}

// Connected lists connected sources in the order they first appeared.
func (r *Registry) Connected() []model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.Source
	for _, id := range r.order {
		if s := r.sources[id]; s.State == model.Connected {
			res = append(res, s)
		}
	}
	return res
}

func (r *Registry) All() []model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]model.Source, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.sources[id])
	}
	return res
}

func (r *Registry) Get(id string) (model.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	return s, ok
}
