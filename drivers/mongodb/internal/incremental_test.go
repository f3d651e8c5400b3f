package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils/typeutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intDocs(values ...int32) []bson.M {
	docs := make([]bson.M, 0, len(values))
	for _, value := range values {
		docs = append(docs, bson.M{"_id": primitive.NewObjectID(), "n": value})
	}
	return docs
}

func TestSyncCollection_FirstRun(t *testing.T) {
	collection := &fakeCollection{docs: intDocs(1, 2, 3)}
	state := types.NewState()
	sink := &recordingSink{}

	metrics, err := syncCollection(context.Background(), collection, testStream("n", ""), state, sink, testOptions(2))
	require.NoError(t, err)

	assert.Equal(t, []types.MessageType{
		types.StateMessage,
		types.ActivateVersionMessage,
		types.RecordMessage,
		types.RecordMessage,
		types.StateMessage,
		types.RecordMessage,
		types.ActivateVersionMessage,
		types.StateMessage,
	}, sink.types())

	version := fixedNow.UnixMilli()
	for _, message := range sink.ofType(types.ActivateVersionMessage) {
		assert.Equal(t, "orders", message.Stream)
		assert.Equal(t, version, message.Version)
	}
	for idx, message := range sink.ofType(types.RecordMessage) {
		assert.Equal(t, "orders", message.Stream)
		assert.Equal(t, version, message.Version)
		assert.Equal(t, "2024-03-01T12:00:00.000Z", message.TimeExtracted)
		assert.Equal(t, int32(idx+1), message.Record["n"])
		assert.IsType(t, "", message.Record["_id"])
	}

	assert.Empty(t, collection.filter)
	assert.Equal(t, "n", collection.sortKey)
	assert.Equal(t, int64(3), metrics.Rows)
	assert.Equal(t, int64(0), metrics.Stalled)

	bookmark := state.Bookmarks["shop-orders"]
	assert.Equal(t, version, *bookmark.Version)
	assert.Equal(t, "n", bookmark.ReplicationKeyName)
	assert.Equal(t, "3", *bookmark.ReplicationKeyValue)
	assert.Equal(t, "int", bookmark.ReplicationKeyType)
	assert.Equal(t, "3", *sink.lastState().Bookmarks["shop-orders"].ReplicationKeyValue)
}

func TestSyncCollection_ResumesFromBookmark(t *testing.T) {
	state := types.NewState()
	bookmark := state.BookmarkFor("shop-orders")
	bookmark.SetVersion(1000)
	bookmark.ReplicationKeyName = "ts"
	bookmark.SetValue("2020-01-01", typeutils.DateTimeKey)

	before := primitive.NewDateTimeFromTime(time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC))
	after := primitive.NewDateTimeFromTime(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC))
	collection := &fakeCollection{docs: []bson.M{{"_id": 1, "ts": before}, {"_id": 2, "ts": after}}}
	sink := &recordingSink{}

	metrics, err := syncCollection(context.Background(), collection, testStream("ts", ""), state, sink, testOptions(1000))
	require.NoError(t, err)

	start := primitive.NewDateTimeFromTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, bson.M{"ts": bson.M{"$gte": start}}, collection.filter)
	assert.Equal(t, []types.MessageType{
		types.StateMessage,
		types.RecordMessage,
		types.ActivateVersionMessage,
		types.StateMessage,
	}, sink.types())
	assert.Equal(t, int64(1000), sink.ofType(types.RecordMessage)[0].Version)
	assert.Equal(t, int64(1000), *state.Bookmarks["shop-orders"].Version)
	assert.Equal(t, "2021-06-01T00:00:00.000Z", *state.Bookmarks["shop-orders"].ReplicationKeyValue)
	assert.Equal(t, int64(1), metrics.Rows)
}

func TestSyncCollection_CheckpointCadence(t *testing.T) {
	tests := []struct {
		rows   int
		period int
	}{
		{rows: 0, period: 2},
		{rows: 1, period: 2},
		{rows: 4, period: 2},
		{rows: 5, period: 2},
		{rows: 7, period: 3},
		{rows: 3, period: 1000},
	}

	for _, tt := range tests {
		values := make([]int32, 0, tt.rows)
		for i := 1; i <= tt.rows; i++ {
			values = append(values, int32(i))
		}
		sink := &recordingSink{}
		_, err := syncCollection(context.Background(), &fakeCollection{docs: intDocs(values...)}, testStream("n", ""), types.NewState(), sink, testOptions(tt.period))
		require.NoError(t, err)

		assert.Len(t, sink.ofType(types.StateMessage), tt.rows/tt.period+2, "rows=%d period=%d", tt.rows, tt.period)
		assert.Len(t, sink.ofType(types.RecordMessage), tt.rows)
	}
}

func TestSyncCollection_StallsOnNull(t *testing.T) {
	collection := &fakeCollection{docs: []bson.M{
		{"_id": 1, "k": "b"},
		{"_id": 2, "k": nil},
		{"_id": 3},
		{"_id": 4, "k": primitive.Null{}},
	}}
	state := types.NewState()
	sink := &recordingSink{}

	metrics, err := syncCollection(context.Background(), collection, testStream("k", ""), state, sink, testOptions(1000))
	require.NoError(t, err)

	assert.Len(t, sink.ofType(types.RecordMessage), 4)
	assert.Equal(t, int64(3), metrics.Stalled)
	assert.Equal(t, "b", *state.Bookmarks["shop-orders"].ReplicationKeyValue)
	assert.Equal(t, "str", state.Bookmarks["shop-orders"].ReplicationKeyType)
}

func TestSyncCollection_ZeroValuesAdvance(t *testing.T) {
	tests := []struct {
		name      string
		docs      []bson.M
		wantValue string
		wantType  string
	}{
		{name: "zero int", docs: []bson.M{{"k": int64(0)}}, wantValue: "0", wantType: "int"},
		{name: "empty string", docs: []bson.M{{"k": ""}}, wantValue: "", wantType: "str"},
		{name: "zero float", docs: []bson.M{{"k": 0.0}}, wantValue: "0", wantType: "float"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := types.NewState()
			_, err := syncCollection(context.Background(), &fakeCollection{docs: tt.docs}, testStream("k", ""), state, &recordingSink{}, testOptions(1000))
			require.NoError(t, err)
			bookmark := state.Bookmarks["shop-orders"]
			require.True(t, bookmark.HasValue())
			assert.Equal(t, tt.wantValue, *bookmark.ReplicationKeyValue)
			assert.Equal(t, tt.wantType, bookmark.ReplicationKeyType)
		})
	}
}

func TestSyncCollection_BookmarkFollowsCursorOrder(t *testing.T) {
	oids := []primitive.ObjectID{}
	for i := 0; i < 5; i++ {
		oids = append(oids, primitive.NewObjectIDFromTimestamp(fixedNow.Add(time.Duration(i)*time.Minute)))
	}
	docs := []bson.M{{"_id": oids[3]}, {"_id": oids[0]}, {"_id": oids[4]}, {"_id": oids[1]}, {"_id": oids[2]}}
	state := types.NewState()
	sink := &recordingSink{}

	_, err := syncCollection(context.Background(), &fakeCollection{docs: docs}, testStream("_id", ""), state, sink, testOptions(1))
	require.NoError(t, err)

	var previous any
	for _, message := range sink.ofType(types.StateMessage) {
		bookmark := message.Value.Bookmarks["shop-orders"]
		value, ok, err := bookmark.Value()
		require.NoError(t, err)
		if !ok {
			continue
		}
		if previous != nil {
			assert.GreaterOrEqual(t, typeutils.Compare(value, previous), 0)
		}
		previous = value
	}
	assert.Equal(t, oids[4].Hex(), *state.Bookmarks["shop-orders"].ReplicationKeyValue)
	assert.Equal(t, "ObjectId", state.Bookmarks["shop-orders"].ReplicationKeyType)
}

func TestSyncCollection_ResumesAfterFailure(t *testing.T) {
	docs := intDocs(1, 2, 3, 4, 5)
	firstRun := &recordingSink{}
	_, err := syncCollection(context.Background(), &fakeCollection{docs: docs, failAfter: 3}, testStream("n", ""), types.NewState(), firstRun, testOptions(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotContains(t, firstRun.types()[2:], types.ActivateVersionMessage)

	// resume from the last snapshot that made it out
	resumed := firstRun.lastState().Clone()
	assert.Equal(t, "2", *resumed.Bookmarks["shop-orders"].ReplicationKeyValue)
	clock := func() time.Time { return fixedNow.Add(time.Hour) }

	secondRun := &recordingSink{}
	collection := &fakeCollection{docs: docs}
	_, err = syncCollection(context.Background(), collection, testStream("n", ""), resumed, secondRun, syncOptions{destinationStream: "orders", updateBookmarkPeriod: 2, now: clock})
	require.NoError(t, err)

	assert.Equal(t, bson.M{"n": bson.M{"$gte": int64(2)}}, collection.filter)
	seen := map[int32]bool{}
	for _, message := range append(firstRun.ofType(types.RecordMessage), secondRun.ofType(types.RecordMessage)...) {
		assert.Equal(t, fixedNow.UnixMilli(), message.Version)
		seen[message.Record["n"].(int32)] = true
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, types.StateMessage, secondRun.types()[0])
	assert.Equal(t, types.RecordMessage, secondRun.types()[1])
	assert.Equal(t, "5", *resumed.Bookmarks["shop-orders"].ReplicationKeyValue)
}

func TestSyncCollection_SnapshotsAreIndependent(t *testing.T) {
	state := types.NewState()
	sink := &recordingSink{}
	_, err := syncCollection(context.Background(), &fakeCollection{docs: intDocs(1, 2)}, testStream("n", ""), state, sink, testOptions(1000))
	require.NoError(t, err)

	first := sink.ofType(types.StateMessage)[0].Value.Bookmarks["shop-orders"]
	assert.False(t, first.HasValue())
	assert.True(t, state.Bookmarks["shop-orders"].HasValue())
}

func TestSyncCollection_KeyResolution(t *testing.T) {
	t.Run("persisted key wins over catalog", func(t *testing.T) {
		state := types.NewState()
		bookmark := state.BookmarkFor("shop-orders")
		bookmark.SetVersion(5)
		bookmark.ReplicationKeyName = "ts"
		collection := &fakeCollection{}

		_, err := syncCollection(context.Background(), collection, testStream("updated_at", ""), state, &recordingSink{}, testOptions(10))
		require.NoError(t, err)
		assert.Equal(t, "ts", collection.sortKey)
		assert.Equal(t, "ts", state.Bookmarks["shop-orders"].ReplicationKeyName)
	})

	t.Run("catalog key is persisted", func(t *testing.T) {
		state := types.NewState()
		sink := &recordingSink{}
		_, err := syncCollection(context.Background(), &fakeCollection{}, testStream("updated_at", ""), state, sink, testOptions(10))
		require.NoError(t, err)
		assert.Equal(t, "updated_at", sink.ofType(types.StateMessage)[0].Value.Bookmarks["shop-orders"].ReplicationKeyName)
	})

	t.Run("no key anywhere", func(t *testing.T) {
		sink := &recordingSink{}
		_, err := syncCollection(context.Background(), &fakeCollection{}, testStream("", ""), types.NewState(), sink, testOptions(10))
		assert.ErrorIs(t, err, types.ErrMissingReplicationKey)
		assert.Empty(t, sink.messages)
	})
}

func TestSyncCollection_ConfigurationErrors(t *testing.T) {
	unknownTag := types.NewState()
	bookmark := unknownTag.BookmarkFor("shop-orders")
	bookmark.SetVersion(1)
	bookmark.ReplicationKeyName = "n"
	value := "7"
	bookmark.ReplicationKeyValue = &value
	bookmark.ReplicationKeyType = "money"

	malformed := types.NewState()
	bookmark = malformed.BookmarkFor("shop-orders")
	bookmark.SetVersion(1)
	bookmark.ReplicationKeyName = "n"
	bookmark.SetValue("seven", typeutils.IntKey)

	tests := []struct {
		name    string
		stream  *types.Stream
		state   *types.State
		wantErr error
	}{
		{name: "unknown tag", stream: testStream("n", ""), state: unknownTag, wantErr: typeutils.ErrUnsupportedKeyType},
		{name: "malformed value", stream: testStream("n", ""), state: malformed, wantErr: types.ErrInvalidBookmark},
		{name: "projection excludes key", stream: testStream("n", `{"n": 0}`), state: types.NewState()},
		{name: "projection without key", stream: testStream("n", `{"name": 1}`), state: types.NewState()},
		{name: "invalid projection", stream: testStream("n", `{"name":`), state: types.NewState()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			collection := &fakeCollection{docs: intDocs(1)}
			_, err := syncCollection(context.Background(), collection, tt.stream, tt.state, sink, testOptions(10))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, sink.messages, "nothing is emitted before configuration is valid")
			assert.Empty(t, collection.sortKey, "no cursor is opened")
		})
	}
}

func TestSyncCollection_UnsupportedKeyValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "bool", value: true},
		{name: "date past year 9999", value: primitive.NewDateTimeFromTime(time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC))},
		{name: "invalid utf8 string", value: "a\xffb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := types.NewState()
			collection := &fakeCollection{docs: []bson.M{{"_id": 1, "k": tt.value}}}
			_, err := syncCollection(context.Background(), collection, testStream("k", ""), state, &recordingSink{}, testOptions(10))
			assert.ErrorIs(t, err, typeutils.ErrUnsupportedKeyType)

			// nothing unreadable reaches the state
			bookmark := state.Bookmarks["shop-orders"]
			require.NotNil(t, bookmark)
			assert.Nil(t, bookmark.ReplicationKeyValue)
		})
	}
}

func TestSyncCollection_PropagatesFailures(t *testing.T) {
	t.Run("find", func(t *testing.T) {
		sink := &recordingSink{}
		_, err := syncCollection(context.Background(), &fakeCollection{findErr: errors.New("not authorized")}, testStream("n", ""), types.NewState(), sink, testOptions(10))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not authorized")
		assert.Equal(t, []types.MessageType{types.StateMessage, types.ActivateVersionMessage}, sink.types())
	})

	t.Run("sink", func(t *testing.T) {
		sink := &recordingSink{failOn: types.RecordMessage}
		metrics, err := syncCollection(context.Background(), &fakeCollection{docs: intDocs(1, 2)}, testStream("n", ""), types.NewState(), sink, testOptions(10))
		require.Error(t, err)
		assert.Equal(t, int64(1), metrics.Rows)
	})
}

func TestSyncCollection_Projection(t *testing.T) {
	collection := &fakeCollection{docs: intDocs(1)}
	_, err := syncCollection(context.Background(), collection, testStream("n", `{"n": 1, "total": 1, "_id": 0}`), types.NewState(), &recordingSink{}, testOptions(10))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(1), "total": float64(1), "_id": float64(0)}, collection.projection)
}
