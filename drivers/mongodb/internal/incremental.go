package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/olake-mongo/drivers/abstract"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/datazip-inc/olake-mongo/utils/typeutils"
	"go.mongodb.org/mongo-driver/bson"
)

type syncOptions struct {
	destinationStream    string
	updateBookmarkPeriod int
	now                  func() time.Time
}

// syncCollection reads every document at or after the bookmark of stream in replication key
// order. Each document is emitted as a record and moves the bookmark; a copy of the state is
// emitted before reading, every updateBookmarkPeriod records and after the closing
// ACTIVATE_VERSION.
func syncCollection(ctx context.Context, collection Collection, stream *types.Stream, state *types.State, sink destination.Sink, opts syncOptions) (abstract.SyncMetrics, error) {
	metrics := abstract.SyncMetrics{}
	bookmark := state.BookmarkFor(stream.ID())

	tracker, err := newBookmarkTracker(stream, bookmark)
	if err != nil {
		return metrics, err
	}
	projection, err := stream.Projection()
	if err != nil {
		return metrics, err
	}
	if err := checkProjection(projection, tracker.keyName); err != nil {
		return metrics, fmt.Errorf("stream[%s]: %s", stream.ID(), err)
	}
	filter := tracker.resumeFilter()

	version, firstRun := assignVersion(bookmark, opts.now)
	if err := sink.Emit(ctx, types.NewStateMessage(state)); err != nil {
		return metrics, err
	}
	activateVersion := types.NewActivateVersionMessage(opts.destinationStream, version)
	// records of a first run show up right away
	if firstRun {
		if err := sink.Emit(ctx, activateVersion); err != nil {
			return metrics, err
		}
	}

	logger.Infof("querying stream[%s] with filter %v, projection %v, sorted on %s", stream.ID(), filter, projection, tracker.keyName)
	cursor, err := collection.Find(ctx, filter, projection, tracker.keyName)
	if err != nil {
		return metrics, fmt.Errorf("failed to open cursor on %s.%s: %s", stream.StreamMeta().DatabaseName, stream.CollectionName(), err)
	}
	defer cursor.Close(ctx)

	timeExtracted := opts.now()
	for cursor.Next(ctx) {
		var row bson.M
		if err := cursor.Decode(&row); err != nil {
			return metrics, fmt.Errorf("failed to decode document: %s", err)
		}
		metrics.Rows++

		record := types.NewRecordMessage(opts.destinationStream, typeutils.RowToRecord(row), version, timeExtracted)
		if err := sink.Emit(ctx, record); err != nil {
			return metrics, err
		}
		if err := tracker.advance(row); err != nil {
			return metrics, err
		}

		if opts.updateBookmarkPeriod > 0 && metrics.Rows%int64(opts.updateBookmarkPeriod) == 0 {
			if err := sink.Emit(ctx, types.NewStateMessage(state)); err != nil {
				return metrics, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return metrics, fmt.Errorf("cursor failed after %d records: %s", metrics.Rows, err)
	}
	metrics.Elapsed = opts.now().Sub(timeExtracted)
	metrics.Stalled = tracker.stalled

	if err := sink.Emit(ctx, activateVersion); err != nil {
		return metrics, err
	}
	if err := sink.Emit(ctx, types.NewStateMessage(state)); err != nil {
		return metrics, err
	}
	logger.Infof("synced %d records for stream[%s], bookmark %s=%s", metrics.Rows, stream.ID(), tracker.keyName, bookmarkValue(bookmark))
	return metrics, nil
}

func bookmarkValue(bookmark *types.Bookmark) string {
	if !bookmark.HasValue() {
		return "<none>"
	}
	return *bookmark.ReplicationKeyValue
}
