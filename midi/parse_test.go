package midi

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jsphweid/keystream/model"
)

func frame(b ...byte) model.RawFrame {
	return model.RawFrame{Bytes: b, SourceID: "kbd", Timestamp: time.Unix(1, 0)}
}

func TestParseNotes(t *testing.T) {
	cases := []struct {
		in       model.RawFrame
		kind     model.NoteKind
		channel  uint8
		note     uint8
		velocity uint8
	}{
		{frame(0x90, 60, 100), model.NoteOn, 0, 60, 100},
		{frame(0x93, 64, 1), model.NoteOn, 3, 64, 1},
		{frame(0x90, 60, 0), model.NoteOff, 0, 60, 0},
		{frame(0x80, 67, 40), model.NoteOff, 0, 67, 40},
		{frame(0x8F, 127, 0), model.NoteOff, 15, 127, 0},
		{frame(0x90, 0, 127, 0xFF), model.NoteOn, 0, 0, 127},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("% X", c.in.Bytes), func(t *testing.T) {
			ev, status := Parse(c.in)

			assert := assert.New(t)
			assert.Equal(FrameNote, status)
			assert.Equal(c.kind, ev.Kind)
			assert.Equal(c.channel, ev.Channel)
			assert.Equal(c.note, ev.Note)
			assert.Equal(c.velocity, ev.Velocity)
			assert.Equal("kbd", ev.SourceID)
			assert.Equal(c.in.Timestamp, ev.Timestamp)
		})
	}
}

func TestParseIgnoresSystemAndOtherChannelMessages(t *testing.T) {
	cases := []model.RawFrame{
		frame(0xFE),             // active sensing
		frame(0xF8),             // clock
		frame(0xF0, 0x7E, 0xF7), // sysex
		frame(0xB0, 64, 127),    // sustain pedal
		frame(0xE0, 0, 64),      // pitch bend
		frame(0xC0, 5),          // program change
	}

	for _, c := range cases {
		_, status := Parse(c)
		assert.Equal(t, FrameIgnored, status, "% X", c.Bytes)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []model.RawFrame{
		frame(),
		frame(0x90),
		frame(0x90, 60),
		frame(0x80, 60),
		frame(60, 100),         // data byte in status position
		frame(0x90, 0x80, 100), // key out of range
		frame(0x90, 60, 0x80),  // velocity out of range
	}

	for _, c := range cases {
		_, status := Parse(c)
		assert.Equal(t, FrameMalformed, status, "% X", c.Bytes)
	}
}

func BenchmarkParse(b *testing.B) {
	f := frame(0x90, 60, 100)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Parse(f)
	}
}
