package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/goccy/go-json"
)

type MockConfig struct{}

func (c *MockConfig) Validate() error {
	return nil
}

// MockDriver delegates SyncStream to syncStreamFunc and records the streams it was asked to sync
type MockDriver struct {
	syncStreamFunc func(ctx context.Context, stream *types.Stream, state *types.State, sink destination.Sink) (SyncMetrics, error)
	synced         []string
}

func (m *MockDriver) GetConfigRef() Config {
	return &MockConfig{}
}

func (m *MockDriver) Spec() any {
	return MockConfig{}
}

func (m *MockDriver) Type() string {
	return "mock"
}

func (m *MockDriver) Setup(_ context.Context) error {
	return nil
}

func (m *MockDriver) Close(_ context.Context) error {
	return nil
}

func (m *MockDriver) DestinationStream(stream *types.Stream) string {
	return stream.Stream
}

func (m *MockDriver) SyncStream(ctx context.Context, stream *types.Stream, state *types.State, sink destination.Sink) (SyncMetrics, error) {
	m.synced = append(m.synced, stream.ID())
	if m.syncStreamFunc == nil {
		return SyncMetrics{}, nil
	}
	return m.syncStreamFunc(ctx, stream, state, sink)
}

// recordingSink keeps every emitted message
type recordingSink struct {
	messages []*types.Message
}

func (s *recordingSink) Emit(_ context.Context, message *types.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

func createStream(id, method string, selected bool) *types.Stream {
	raw := fmt.Sprintf(`{
		"tap_stream_id": %q,
		"stream": %q,
		"metadata": [{"breadcrumb": [], "metadata": {
			"selected": %t,
			"database-name": "shop",
			"replication-key": "updated_at",
			"replication-method": %q
		}}]
	}`, id, id, selected, method)
	stream := &types.Stream{}
	if err := json.Unmarshal([]byte(raw), stream); err != nil {
		panic(err)
	}
	return stream
}
