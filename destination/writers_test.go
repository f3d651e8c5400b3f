package destination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datazip-inc/olake-mongo/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	config   *recordingConfig
	calls    *[]string
	flushErr error
}

type recordingConfig struct {
	Path string `json:"path" validate:"required"`
}

func (c *recordingConfig) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (w *recordingWriter) GetConfigRef() Config {
	if w.config == nil {
		w.config = &recordingConfig{}
	}
	return w.config
}

func (w *recordingWriter) Spec() any    { return recordingConfig{} }
func (w *recordingWriter) Type() string { return "RECORDING" }
func (w *recordingWriter) Check(_ context.Context) error {
	return nil
}

func (w *recordingWriter) Write(_ context.Context, message *types.Message) error {
	*w.calls = append(*w.calls, "write:"+string(message.Type))
	return nil
}

func (w *recordingWriter) Flush(_ context.Context) error {
	*w.calls = append(*w.calls, "flush")
	return w.flushErr
}

func (w *recordingWriter) Close(_ context.Context) error {
	*w.calls = append(*w.calls, "close")
	return nil
}

type recordingStore struct {
	calls *[]string
	saved []*types.State
}

func (s *recordingStore) Save(_ context.Context, state *types.State) error {
	*s.calls = append(*s.calls, "save")
	s.saved = append(s.saved, state)
	return nil
}

func TestEmitter_FlushesBeforeSavingState(t *testing.T) {
	calls := []string{}
	writer := &recordingWriter{calls: &calls}
	store := &recordingStore{calls: &calls}
	emitter := NewEmitter(writer, store)
	ctx := context.Background()

	state := types.NewState()
	state.BookmarkFor("db-orders").SetVersion(1)

	require.NoError(t, emitter.Emit(ctx, types.NewRecordMessage("orders", map[string]any{"id": 1}, 1, time.Now())))
	require.NoError(t, emitter.Emit(ctx, types.NewRecordMessage("orders", map[string]any{"id": 2}, 1, time.Now())))
	require.NoError(t, emitter.Emit(ctx, types.NewStateMessage(state)))
	require.NoError(t, emitter.Emit(ctx, types.NewActivateVersionMessage("orders", 1)))
	require.NoError(t, emitter.Close(ctx))

	assert.Equal(t, []string{
		"write:RECORD",
		"write:RECORD",
		"flush",
		"write:STATE",
		"save",
		"write:ACTIVATE_VERSION",
		"flush",
		"close",
	}, calls)
	assert.Equal(t, int64(2), emitter.Records("orders"))
	assert.Equal(t, int64(0), emitter.Records("users"))
	assert.Equal(t, int64(1), emitter.States())
	require.Len(t, store.saved, 1)
	assert.Equal(t, int64(1), *store.saved[0].Bookmarks["db-orders"].Version)
}

func TestEmitter_FailedFlushSkipsSave(t *testing.T) {
	calls := []string{}
	writer := &recordingWriter{calls: &calls, flushErr: errors.New("disk full")}
	store := &recordingStore{calls: &calls}
	emitter := NewEmitter(writer, store)

	err := emitter.Emit(context.Background(), types.NewStateMessage(types.NewState()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, store.saved)
}

func TestEmitter_WithoutStore(t *testing.T) {
	calls := []string{}
	emitter := NewEmitter(&recordingWriter{calls: &calls}, nil)
	require.NoError(t, emitter.Emit(context.Background(), types.NewStateMessage(types.NewState())))
	assert.Equal(t, int64(1), emitter.States())
}

func TestNewWriter(t *testing.T) {
	calls := []string{}
	Register("RECORDING", func() Writer { return &recordingWriter{calls: &calls} })
	defer delete(RegisteredWriters, "RECORDING")

	tests := []struct {
		name    string
		config  *WriterConfig
		wantErr string
	}{
		{name: "unknown type", config: &WriterConfig{Type: "KAFKA"}, wantErr: "invalid destination type"},
		{name: "invalid config", config: &WriterConfig{Type: "RECORDING", WriterConfig: map[string]any{}}, wantErr: "invalid RECORDING destination config"},
		{name: "valid", config: &WriterConfig{Type: "RECORDING", WriterConfig: map[string]any{"path": "/tmp"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer, err := NewWriter(context.Background(), tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "RECORDING", writer.Type())
		})
	}
}
