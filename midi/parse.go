package midi

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/jsphweid/keystream/constants"
	"github.com/jsphweid/keystream/model"
)

type FrameStatus uint8

const (
	FrameNote FrameStatus = iota
	// FrameIgnored covers system messages (clock, active sensing, sysex) and
	// channel messages that are not notes.
	FrameIgnored
	FrameMalformed
)

func (s FrameStatus) String() string {
	switch s {
	case FrameNote:
		return "note"
	case FrameIgnored:
		return "ignored"
	case FrameMalformed:
		return "malformed"
	}
	return "unknown"
}

// Parse turns a raw frame into a note event. Frames that are not notes come
// back as FrameIgnored, frames that cannot be notes as FrameMalformed; neither
// case is an error for the caller.
func Parse(f model.RawFrame) (model.NoteEvent, FrameStatus) {
	b := f.Bytes
	if len(b) == 0 {
		return model.NoteEvent{}, FrameMalformed
	}

	status := b[0]
	if status&constants.StatusFlag == 0 {
		// running status is not supported
		return model.NoteEvent{}, FrameMalformed
	}
	if status >= constants.SystemStatus {
		return model.NoteEvent{}, FrameIgnored
	}

	kind := status & constants.StatusMask
	if kind != constants.NoteOnStatus && kind != constants.NoteOffStatus {
		return model.NoteEvent{}, FrameIgnored
	}
	if len(b) < constants.NoteFrameSize {
		return model.NoteEvent{}, FrameMalformed
	}
	if b[1] > constants.DataMask || b[2] > constants.DataMask {
		return model.NoteEvent{}, FrameMalformed
	}

	ev := model.NoteEvent{
		Timestamp: f.Timestamp,
		SourceID:  f.SourceID,
	}

	msg := midi.Message(b[:constants.NoteFrameSize])
	var vel uint8
	switch {
	case msg.GetNoteStart(&ev.Channel, &ev.Note, &ev.Velocity):
		ev.Kind = model.NoteOn
	case msg.GetNoteOff(&ev.Channel, &ev.Note, &vel):
		ev.Kind = model.NoteOff
		ev.Velocity = vel
	case msg.GetNoteEnd(&ev.Channel, &ev.Note):
		// note on with velocity 0
		ev.Kind = model.NoteOff
	default:
		return model.NoteEvent{}, FrameMalformed
	}
	return ev, FrameNote
}
