package destination

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
)

type DestinationType string

const (
	Stdout  DestinationType = "STDOUT"
	Local   DestinationType = "LOCAL"
	Parquet DestinationType = "PARQUET"
	S3      DestinationType = "S3"
)

type NewFunc func() Writer

// WriterConfig is the content of the --destination file
type WriterConfig struct {
	Type         DestinationType `json:"type" validate:"required"`
	WriterConfig any             `json:"writer,omitempty"`
}

var RegisteredWriters = map[DestinationType]NewFunc{}

// NewWriter builds the registered writer for config.Type and checks it is usable
func NewWriter(ctx context.Context, config *WriterConfig) (Writer, error) {
	newfunc, found := RegisteredWriters[config.Type]
	if !found {
		return nil, fmt.Errorf("invalid destination type has been passed [%s]", config.Type)
	}

	writer := newfunc()
	if config.WriterConfig != nil {
		if err := utils.Unmarshal(config.WriterConfig, writer.GetConfigRef()); err != nil {
			return nil, err
		}
	}
	if err := writer.GetConfigRef().Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s destination config: %s", config.Type, err)
	}

	if err := writer.Check(ctx); err != nil {
		return nil, fmt.Errorf("failed to test destination: %s", err)
	}

	return writer, nil
}

// Emitter is the Sink used by syncs: it forwards messages to a Writer and, on every
// STATE, flushes the writer before handing the checkpoint to the state store
type Emitter struct {
	writer  Writer
	store   StateSaver
	records map[string]int64
	states  int64
}

func NewEmitter(writer Writer, store StateSaver) *Emitter {
	return &Emitter{
		writer:  writer,
		store:   store,
		records: make(map[string]int64),
	}
}

func (e *Emitter) Emit(ctx context.Context, message *types.Message) error {
	switch message.Type {
	case types.RecordMessage:
		e.records[message.Stream]++
	case types.StateMessage:
		if err := e.writer.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush %s destination before checkpoint: %s", e.writer.Type(), err)
		}
	}

	if err := e.writer.Write(ctx, message); err != nil {
		return fmt.Errorf("%s destination failed to write %s message: %s", e.writer.Type(), message.Type, err)
	}

	if message.Type == types.StateMessage {
		e.states++
		if e.store != nil {
			if err := e.store.Save(ctx, message.Value); err != nil {
				return fmt.Errorf("failed to persist state: %s", err)
			}
		}
	}
	return nil
}

// Records returns the number of records emitted for a destination stream
func (e *Emitter) Records(stream string) int64 {
	return e.records[stream]
}

func (e *Emitter) States() int64 {
	return e.states
}

// Close flushes and closes the writer
func (e *Emitter) Close(ctx context.Context) error {
	return utils.ErrExecSequential(
		utils.ErrExecFormat("failed to flush destination: %s", func() error { return e.writer.Flush(ctx) }),
		utils.ErrExecFormat("failed to close destination: %s", func() error { return e.writer.Close(ctx) }),
	)
}

// Register adds a writer constructor, called from the writers' init
func Register(typ DestinationType, newfunc NewFunc) {
	if _, found := RegisteredWriters[typ]; found {
		logger.Warnf("destination %s registered twice", typ)
	}
	RegisteredWriters[typ] = newfunc
}
