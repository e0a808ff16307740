package chord

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/jsphweid/keystream/model"
)

// Dedupe collects the distinct note numbers of the note-ons in events,
// lowest first. A note pressed several times counts once.
func Dedupe(events []model.NoteEvent) model.Notes {
	var seen [128]bool
	notes := make(model.Notes, 0, len(events))
	for _, ev := range events {
		if ev.Kind != model.NoteOn || ev.Note > 127 || seen[ev.Note] {
			continue
		}
		seen[ev.Note] = true
		notes = append(notes, ev.Note)
	}
	slices.Sort(notes)
	return notes
}

// Key renders notes as "60-64-67". The input is sorted in place.
func Key(notes model.Notes) string {
	slices.Sort(notes)
	var sb strings.Builder
	for i, note := range notes {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strconv.Itoa(int(note)))
	}
	return sb.String()
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (model.Notes, error) {
	if key == "" {
		return model.Notes{}, nil
	}
	parts := strings.Split(key, "-")
	notes := make(model.Notes, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil || n > 127 {
			return nil, errors.Errorf("invalid note %q in chord key %q", p, key)
		}
		notes = append(notes, uint8(n))
	}
	slices.Sort(notes)
	return slices.Compact(notes), nil
}

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName spells a note number with middle C (60) as C4.
func NoteName(note uint8) string {
	return pitchClasses[note%12] + strconv.Itoa(int(note)/12-1)
}

// Names spells every note of a chord, space separated.
func Names(notes model.Notes) string {
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = NoteName(n)
	}
	return strings.Join(names, " ")
}
