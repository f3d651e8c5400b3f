package types

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/goccy/go-json"
)

// Catalog is the list of streams handed to the connector through --catalog
type Catalog struct {
	Streams []*Stream `json:"streams" validate:"dive"`
}

// Stream describes one source collection; it is never mutated during a sync
type Stream struct {
	TapStreamID string          `json:"tap_stream_id" validate:"required"`
	Stream      string          `json:"stream" validate:"required"`
	TableName   string          `json:"table_name,omitempty"`
	Metadata    []MetadataEntry `json:"metadata,omitempty"`
}

// MetadataEntry is a breadcrumb addressed metadata map; an empty breadcrumb targets the stream itself
type MetadataEntry struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   StreamMetadata `json:"metadata"`
}

type StreamMetadata struct {
	Selected          *bool  `json:"selected,omitempty"`
	DatabaseName      string `json:"database-name,omitempty"`
	ReplicationKey    string `json:"replication-key,omitempty"`
	ReplicationMethod string `json:"replication-method,omitempty"`
	// JSON encoded mongo projection document
	Projection string `json:"tap-mongodb.projection,omitempty"`
}

func (s *Stream) ID() string {
	return s.TapStreamID
}

// CollectionName falls back to the stream name when no table name is given
func (s *Stream) CollectionName() string {
	if s.TableName != "" {
		return s.TableName
	}
	return s.Stream
}

// StreamMeta returns the stream level metadata (empty breadcrumb)
func (s *Stream) StreamMeta() StreamMetadata {
	for _, entry := range s.Metadata {
		if len(entry.Breadcrumb) == 0 {
			return entry.Metadata
		}
	}
	return StreamMetadata{}
}

func (s *Stream) IsSelected() bool {
	selected := s.StreamMeta().Selected
	return selected != nil && *selected
}

func (s *Stream) IsIncremental() bool {
	return strings.EqualFold(s.StreamMeta().ReplicationMethod, constants.Incremental)
}

// DestinationName is the stream name used on every emitted message
func (s *Stream) DestinationName(includeDatabase bool) string {
	if includeDatabase {
		return fmt.Sprintf("%s_%s", s.StreamMeta().DatabaseName, s.Stream)
	}
	return s.Stream
}

// Projection decodes the configured projection; nil means all fields
func (s *Stream) Projection() (map[string]any, error) {
	raw := strings.TrimSpace(s.StreamMeta().Projection)
	if raw == "" {
		return nil, nil
	}
	projection := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &projection); err != nil {
		return nil, fmt.Errorf("stream[%s] has an invalid projection %q: %s", s.ID(), raw, err)
	}
	return projection, nil
}

// Validate checks what the sync needs before touching the source
func (s *Stream) Validate() error {
	if s.StreamMeta().DatabaseName == "" {
		return fmt.Errorf("stream[%s] is missing database-name metadata", s.ID())
	}
	if _, err := s.Projection(); err != nil {
		return err
	}
	return nil
}

// SelectedStreams returns the selected streams in catalog order
func (c *Catalog) SelectedStreams() []*Stream {
	selected := []*Stream{}
	for _, stream := range c.Streams {
		if stream.IsSelected() {
			selected = append(selected, stream)
		}
	}
	return selected
}

// GetStream looks a stream up by tap_stream_id
func (c *Catalog) GetStream(streamID string) (*Stream, bool) {
	for _, stream := range c.Streams {
		if stream.ID() == streamID {
			return stream, true
		}
	}
	return nil, false
}
