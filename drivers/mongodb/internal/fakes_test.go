package driver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils/typeutils"
	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
)

// fakeCollection serves docs the way mongo would for a single ascending sort with an optional
// $gte filter on the sort key
type fakeCollection struct {
	docs []bson.M
	// cursor fails after this many documents when > 0
	failAfter int
	findErr   error

	filter     bson.M
	projection map[string]any
	sortKey    string
}

func (c *fakeCollection) Find(_ context.Context, filter bson.M, projection map[string]any, sortKey string) (Cursor, error) {
	c.filter, c.projection, c.sortKey = filter, projection, sortKey
	if c.findErr != nil {
		return nil, c.findErr
	}

	var bound any
	if condition, found := filter[sortKey]; found {
		bound = condition.(bson.M)["$gte"]
	}
	matched := []bson.M{}
	for _, doc := range c.docs {
		if bound != nil && (doc[sortKey] == nil || typeutils.Compare(doc[sortKey], bound) < 0) {
			continue
		}
		matched = append(matched, doc)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return typeutils.Compare(matched[i][sortKey], matched[j][sortKey]) < 0
	})
	return &fakeCursor{docs: matched, failAfter: c.failAfter, position: -1}, nil
}

type fakeCursor struct {
	docs      []bson.M
	failAfter int
	position  int
	err       error
	closed    bool
}

func (c *fakeCursor) Next(_ context.Context) bool {
	if c.failAfter > 0 && c.position+1 >= c.failAfter {
		c.err = fmt.Errorf("connection reset by peer")
		return false
	}
	c.position++
	return c.position < len(c.docs)
}

func (c *fakeCursor) Decode(val any) error {
	doc := bson.M{}
	for key, value := range c.docs[c.position] {
		doc[key] = value
	}
	*(val.(*bson.M)) = doc
	return nil
}

func (c *fakeCursor) Err() error {
	return c.err
}

func (c *fakeCursor) Close(_ context.Context) error {
	c.closed = true
	return nil
}

// recordingSink keeps every emitted message in order
type recordingSink struct {
	messages []*types.Message
	failOn   types.MessageType
}

func (s *recordingSink) Emit(_ context.Context, message *types.Message) error {
	if s.failOn != "" && message.Type == s.failOn {
		return fmt.Errorf("sink rejected %s", message.Type)
	}
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSink) types() []types.MessageType {
	kinds := make([]types.MessageType, 0, len(s.messages))
	for _, message := range s.messages {
		kinds = append(kinds, message.Type)
	}
	return kinds
}

func (s *recordingSink) ofType(kind types.MessageType) []*types.Message {
	matched := []*types.Message{}
	for _, message := range s.messages {
		if message.Type == kind {
			matched = append(matched, message)
		}
	}
	return matched
}

func (s *recordingSink) lastState() *types.State {
	states := s.ofType(types.StateMessage)
	return states[len(states)-1].Value
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func testOptions(period int) syncOptions {
	return syncOptions{destinationStream: "orders", updateBookmarkPeriod: period, now: fixedClock}
}

// testStream builds a selected incremental stream of the shop database; empty key or
// projection leave the metadata out
func testStream(replicationKey, projection string) *types.Stream {
	metadata := map[string]any{
		"selected":           true,
		"database-name":      "shop",
		"replication-method": "INCREMENTAL",
	}
	if replicationKey != "" {
		metadata["replication-key"] = replicationKey
	}
	if projection != "" {
		metadata["tap-mongodb.projection"] = projection
	}
	raw, err := json.Marshal(map[string]any{
		"tap_stream_id": "shop-orders",
		"stream":        "orders",
		"metadata":      []any{map[string]any{"breadcrumb": []string{}, "metadata": metadata}},
	})
	if err != nil {
		panic(err)
	}
	stream := &types.Stream{}
	if err := json.Unmarshal(raw, stream); err != nil {
		panic(err)
	}
	return stream
}
