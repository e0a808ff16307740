package midi

import "sort"

// sortFrames orders by time; at the same instant note-offs go first so a
// repeated note is released before it is struck again.
func sortFrames(frames []TimedFrame) {
	sort.SliceStable(frames, func(i, j int) bool {
		if frames[i].AtMicros != frames[j].AtMicros {
			return frames[i].AtMicros < frames[j].AtMicros
		}
		return isRelease(frames[i].Bytes) && !isRelease(frames[j].Bytes)
	})
}

func isRelease(b []byte) bool {
	if len(b) < 3 {
		return false
	}
	kind := b[0] & 0xF0
	return kind == 0x80 || (kind == 0x90 && b[2] == 0)
}
