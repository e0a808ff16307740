package device

import (
	"sync"

	"github.com/jsphweid/keystream/model"
)

type recorder struct {
	mu      sync.Mutex
	frames  []model.RawFrame
	sources [][]model.Source
}

func (r *recorder) HandleFrame(f model.RawFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Bytes = append([]byte(nil), f.Bytes...)
	r.frames = append(r.frames, f)
}

func (r *recorder) HandleSources(list []model.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, append([]model.Source(nil), list...))
}

func (r *recorder) Frames() []model.RawFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RawFrame(nil), r.frames...)
}

func (r *recorder) Sources() [][]model.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]model.Source(nil), r.sources...)
}

func (r *recorder) lastSourceIDs() []string {
	all := r.Sources()
	if len(all) == 0 {
		return nil
	}
	var ids []string
	for _, s := range all[len(all)-1] {
		ids = append(ids, s.ID)
	}
	return ids
}
