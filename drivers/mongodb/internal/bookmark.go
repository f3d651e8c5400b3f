package driver

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/datazip-inc/olake-mongo/utils/typeutils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bookmarkTracker keeps the last replication key value seen for a stream inside its bookmark
type bookmarkTracker struct {
	streamID string
	keyName  string
	bookmark *types.Bookmark
	last     any
	stalled  int64
}

// newBookmarkTracker resolves the replication key, preferring the one persisted by an earlier
// run, and persists it so later catalog edits do not change the key of a running stream
func newBookmarkTracker(stream *types.Stream, bookmark *types.Bookmark) (*bookmarkTracker, error) {
	catalogKey := stream.StreamMeta().ReplicationKey
	keyName := bookmark.ReplicationKeyName
	switch {
	case keyName == "" && catalogKey == "":
		return nil, fmt.Errorf("%w configured for stream[%s]", types.ErrMissingReplicationKey, stream.ID())
	case keyName == "":
		keyName = catalogKey
		bookmark.ReplicationKeyName = keyName
	case catalogKey != "" && catalogKey != keyName:
		logger.Warnf("stream[%s]: catalog replication key %q differs from the bookmarked key %q; continuing with %q, clear the state of the stream to switch keys",
			stream.ID(), catalogKey, keyName, keyName)
	}

	last, _, err := bookmark.Value()
	if err != nil {
		return nil, fmt.Errorf("stream[%s]: %w", stream.ID(), err)
	}
	return &bookmarkTracker{
		streamID: stream.ID(),
		keyName:  keyName,
		bookmark: bookmark,
		last:     last,
	}, nil
}

// resumeFilter selects everything at or after the bookmarked value; ties with the bookmark are
// read again
func (t *bookmarkTracker) resumeFilter() bson.M {
	if t.last == nil {
		return bson.M{}
	}
	return bson.M{t.keyName: bson.M{"$gte": t.last}}
}

// advance moves the bookmark to the key value of row. Rows without a value leave it untouched.
func (t *bookmarkTracker) advance(row bson.M) error {
	value, found := lookup(row, t.keyName)
	if isNull(value) || !found {
		t.stalled++
		logger.Debugf("stream[%s]: record without %s, bookmark not moved", t.streamID, t.keyName)
		return nil
	}

	serialized, tag, err := typeutils.SerializeKey(value)
	if err != nil {
		return fmt.Errorf("stream[%s] replication key %s: %w", t.streamID, t.keyName, err)
	}
	if t.last != nil && typeutils.Compare(value, t.last) < 0 {
		logger.Warnf("stream[%s]: %s moved backwards from %v to %v", t.streamID, t.keyName, t.last, value)
	}

	t.bookmark.SetValue(serialized, tag)
	t.last = value
	return nil
}

// lookup reads a top level field or a dotted path into embedded documents
func lookup(row bson.M, path string) (any, bool) {
	if value, found := row[path]; found {
		return value, true
	}

	var current any = row
	found := false
	for _, part := range strings.Split(path, ".") {
		switch document := current.(type) {
		case bson.M:
			current, found = document[part]
		case map[string]any:
			current, found = document[part]
		case bson.D:
			current, found = nil, false
			for _, elem := range document {
				if elem.Key == part {
					current, found = elem.Value, true
					break
				}
			}
		default:
			return nil, false
		}
		if !found {
			return nil, false
		}
	}
	return current, true
}

func isNull(value any) bool {
	switch value.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return true
	}
	return false
}

// checkProjection rejects projections that would drop the replication key from the returned
// documents, since the bookmark could then never advance
func checkProjection(projection map[string]any, keyName string) error {
	if len(projection) == 0 {
		return nil
	}

	// the key itself or its nearest projected parent decides
	for path := keyName; ; {
		if value, found := projection[path]; found {
			if !included(value) {
				return fmt.Errorf("projection excludes replication key %s", keyName)
			}
			return nil
		}
		idx := strings.LastIndex(path, ".")
		if idx < 0 {
			break
		}
		path = path[:idx]
	}

	// _id is returned unless excluded explicitly
	if keyName == constants.MongoPrimaryID {
		return nil
	}
	for field, value := range projection {
		if field != constants.MongoPrimaryID && included(value) {
			return fmt.Errorf("projection does not include replication key %s", keyName)
		}
	}
	return nil
}

func included(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	}
	// expressions such as {"$slice": 1} keep the field
	return true
}
