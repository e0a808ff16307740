package midi

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/jsphweid/keystream/constants"
)

// TimedFrame is a channel message from a file, at its offset from the start.
type TimedFrame struct {
	AtMicros int64
	Bytes    []byte
}

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	// smf panics on some corrupt files
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = fmt.Errorf("parsing midi file %s: %v", filepath, r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "reading midi file")
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return nil, errors.Wrap(err, "parsing midi file")
	}
	return res, nil
}

// ChannelFrames flattens every track into channel messages ordered by time.
// Meta and system messages are left out.
func ChannelFrames(s *smf.SMF) []TimedFrame {
	var frames []TimedFrame
	for _, track := range s.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			b := []byte(ev.Message)
			if len(b) == 0 || b[0] >= constants.SystemStatus || b[0]&constants.StatusFlag == 0 {
				continue
			}
			frames = append(frames, TimedFrame{
				AtMicros: s.TimeAt(absTicks),
				Bytes:    append([]byte(nil), b...),
			})
		}
	}
	sortFrames(frames)
	return frames
}
