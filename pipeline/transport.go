package pipeline

import (
	"context"

	"github.com/jsphweid/keystream/model"
)

// Sink receives everything a transport produces. Service implements it.
type Sink interface {
	HandleFrame(model.RawFrame)
	HandleSources([]model.Source)
}

// Transport delivers device frames and connectivity. Open may block while
// the host grants access; it must give up when ctx is done.
type Transport interface {
	Open(ctx context.Context, sink Sink) error
	Close() error
}
