package abstract

import (
	"time"

	"github.com/datazip-inc/olake-mongo/utils/logger"
)

// SyncMetrics is what a single stream sync reports back to its caller
type SyncMetrics struct {
	Rows    int64
	Elapsed time.Duration
	// rows whose replication key was missing or null
	Stalled int64
}

type StreamSummary struct {
	StreamID string
	SyncMetrics
}

// RunSummary aggregates the metrics of every stream synced by one invocation, in sync order
type RunSummary struct {
	RunID   string
	Streams []StreamSummary
	Skipped []string
}

func (r *RunSummary) add(streamID string, metrics SyncMetrics) {
	for idx := range r.Streams {
		if r.Streams[idx].StreamID == streamID {
			r.Streams[idx].Rows += metrics.Rows
			r.Streams[idx].Elapsed += metrics.Elapsed
			r.Streams[idx].Stalled += metrics.Stalled
			return
		}
	}
	r.Streams = append(r.Streams, StreamSummary{StreamID: streamID, SyncMetrics: metrics})
}

func (r *RunSummary) TotalRows() int64 {
	var total int64
	for _, stream := range r.Streams {
		total += stream.Rows
	}
	return total
}

func (r *RunSummary) Log() {
	for _, stream := range r.Streams {
		logger.Infof("stream[%s]: synced %d records in %s", stream.StreamID, stream.Rows, stream.Elapsed)
		if stream.Stalled > 0 {
			logger.Warnf("stream[%s]: %d records had no replication key value and did not move the bookmark", stream.StreamID, stream.Stalled)
		}
	}
	logger.Infof("run[%s]: synced %d records across %d streams, skipped %d", r.RunID, r.TotalRows(), len(r.Streams), len(r.Skipped))
}
