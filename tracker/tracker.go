// Package tracker keeps the set of held keys. A key may be triggered more
// than once before it is released (sustain, retriggering, several sources),
// so each note carries a count of outstanding note-ons.
package tracker

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/jsphweid/keystream/model"
)

type entry struct {
	count    int
	velocity uint8
}

type Tracker struct {
	mu    sync.RWMutex
	notes map[uint8]entry
}

func New() *Tracker {
	return &Tracker{notes: make(map[uint8]entry)}
}

func (t *Tracker) Press(note, velocity uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.notes[note]
	e.count++
	e.velocity = velocity
	t.notes[note] = e
}

// Release drops one outstanding press. It reports false when the note was not
// held, in which case nothing changes.
func (t *Tracker) Release(note uint8) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.notes[note]
	if !ok {
		return false
	}
	e.count--
	if e.count <= 0 {
		delete(t.notes, note)
		return true
	}
	t.notes[note] = e
	return true
}

func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notes = make(map[uint8]entry)
}

func (t *Tracker) IsActive(note uint8) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.notes[note]
	return ok
}

// VelocityOf returns the most recent press velocity of a held note.
func (t *Tracker) VelocityOf(note uint8) (uint8, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.notes[note]
	return e.velocity, ok
}

func (t *Tracker) Count(note uint8) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notes[note].count
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.notes)
}

// Snapshot copies the held notes, lowest first.
func (t *Tracker) Snapshot() []model.ActiveNote {
	t.mu.RLock()
	res := make([]model.ActiveNote, 0, len(t.notes))
	for note, e := range t.notes {
		res = append(res, model.ActiveNote{Note: note, Velocity: e.velocity, Count: e.count})
	}
	t.mu.RUnlock()

	slices.SortFunc(res, func(a, b model.ActiveNote) bool {
		return a.Note < b.Note
	})
	return res
}
