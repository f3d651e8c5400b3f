package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
)

type AbstractDriver struct { //nolint:gosec,revive
	driver DriverInterface
	state  *types.State
}

func NewAbstractDriver(driver DriverInterface) *AbstractDriver {
	return &AbstractDriver{
		driver: driver,
		state:  types.NewState(),
	}
}

func (a *AbstractDriver) SetupState(state *types.State) {
	a.state = state
}

func (a *AbstractDriver) State() *types.State {
	return a.state
}

func (a *AbstractDriver) GetConfigRef() Config {
	return a.driver.GetConfigRef()
}

func (a *AbstractDriver) Spec() any {
	return a.driver.Spec()
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

func (a *AbstractDriver) Setup(ctx context.Context) error {
	return a.driver.Setup(ctx)
}

func (a *AbstractDriver) Close(ctx context.Context) error {
	return a.driver.Close(ctx)
}

// ClearState drops the bookmarks of the given streams so their next sync starts fresh under a new version
func (a *AbstractDriver) ClearState(streams []*types.Stream) *types.State {
	streamIDs := make([]string, 0, len(streams))
	for _, stream := range streams {
		streamIDs = append(streamIDs, stream.ID())
	}
	cleared := a.state.ClearBookmarks(streamIDs...)
	logger.Infof("cleared bookmarks of %d streams", len(cleared))
	return a.state
}

// Sync runs the selected streams of the catalog one after another. Streams not set up for
// incremental replication are skipped; the first failing stream stops the run.
func (a *AbstractDriver) Sync(ctx context.Context, catalog *types.Catalog, sink destination.Sink) (*RunSummary, error) {
	summary := &RunSummary{RunID: utils.ULID()}
	streams := catalog.SelectedStreams()
	if len(streams) == 0 {
		return nil, fmt.Errorf("no streams selected in catalog")
	}

	for _, stream := range streams {
		if !stream.IsIncremental() {
			logger.Warnf("skipping stream[%s]: replication method %q is not supported, only %s", stream.ID(), stream.StreamMeta().ReplicationMethod, constants.Incremental)
			summary.Skipped = append(summary.Skipped, stream.ID())
			continue
		}
		if err := stream.Validate(); err != nil {
			return summary, err
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		a.state.SetCurrentlySyncing(stream.ID())
		logger.Infof("starting incremental sync for stream[%s] into %s", stream.ID(), a.driver.DestinationStream(stream))
		metrics, err := a.driver.SyncStream(ctx, stream, a.state, sink)
		if err != nil {
			return summary, fmt.Errorf("failed to sync stream[%s]: %w", stream.ID(), err)
		}
		summary.add(stream.ID(), metrics)
		logger.Infof("synced %d records for stream[%s]", metrics.Rows, stream.ID())

		a.state.ClearCurrentlySyncing()
		if err := sink.Emit(ctx, types.NewStateMessage(a.state)); err != nil {
			return summary, err
		}
	}
	return summary, nil
}
