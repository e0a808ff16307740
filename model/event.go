package model

import "time"

// RawFrame is a device message as it arrived from the transport. Frames are
// not retained past parsing.
type RawFrame struct {
	Bytes     []byte
	SourceID  string
	Timestamp time.Time
}

type NoteKind uint8

const (
	NoteOn NoteKind = iota + 1
	NoteOff
)

func (k NoteKind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	}
	return "unknown"
}

type NoteEvent struct {
	Kind      NoteKind
	Channel   uint8
	Note      uint8
	Velocity  uint8
	Timestamp time.Time
	SourceID  string
}

type ActiveNote struct {
	Note     uint8 `json:"note"`
	Velocity uint8 `json:"velocity"`
	Count    int   `json:"count"`
}
