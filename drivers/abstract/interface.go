package abstract

import (
	"context"

	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
)

type Config interface {
	Validate() error
}

type DriverInterface interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// specific to test & setup
	Setup(ctx context.Context) error
	Close(ctx context.Context) error
	// DestinationStream names the stream on every message emitted for it
	DestinationStream(stream *types.Stream) string
	// SyncStream runs one incremental sync of a stream, mutating the bookmark of the stream
	// in state and emitting records and snapshots to sink in order
	SyncStream(ctx context.Context, stream *types.Stream, state *types.State, sink destination.Sink) (SyncMetrics, error)
}
