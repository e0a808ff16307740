package model

import "time"

type Notes = []uint8

// Chord is one flushed batch: the distinct notes that were pressed inside a
// single batching window.
type Chord struct {
	Notes     Notes
	OpenedAt  time.Time
	FlushedAt time.Time

	// Forced is set when the batch hit its size limit before the window closed.
	Forced bool
}
