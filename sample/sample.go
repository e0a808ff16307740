package sample

import (
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarter = 960
	velocity        = 100
	bpm             = 120
)

// Chords builds a single-track file that strikes each chord on channel 0,
// holds it for a quarter note and releases it. An empty chord is a rest.
func Chords(chords ...[]uint8) (*smf.SMF, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	var rest uint32
	for _, c := range chords {
		if len(c) == 0 {
			rest += ticksPerQuarter
			continue
		}
		for i, key := range c {
			delta := uint32(0)
			if i == 0 {
				delta, rest = rest, 0
			}
			tr.Add(delta, midi.NoteOn(0, key, velocity))
		}
		for i, key := range c {
			delta := uint32(0)
			if i == 0 {
				delta = ticksPerQuarter
			}
			tr.Add(delta, midi.NoteOff(0, key))
		}
	}
	tr.Close(rest)

	if err := s.Add(tr); err != nil {
		return nil, errors.Wrap(err, "adding track")
	}
	return s, nil
}

// Write saves chords as a Standard MIDI File at path.
func Write(path string, chords ...[]uint8) error {
	s, err := Chords(chords...)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.WriteFile(path), "writing %s", path)
}
