package types

import (
	"errors"
	"fmt"
	"sort"

	"github.com/datazip-inc/olake-mongo/utils/typeutils"
)

var (
	ErrInvalidBookmark       = errors.New("invalid bookmark")
	ErrMissingReplicationKey = errors.New("no replication key")
)

// State is the persisted resume point of every incremental stream
type State struct {
	CurrentlySyncing *string              `json:"currently_syncing"`
	Bookmarks        map[string]*Bookmark `json:"bookmarks"`
}

// Bookmark holds the progress of a single stream. ReplicationKeyValue and ReplicationKeyType
// are always written together.
type Bookmark struct {
	Version             *int64  `json:"version,omitempty"`
	ReplicationKeyName  string  `json:"replication_key_name,omitempty"`
	ReplicationKeyValue *string `json:"replication_key_value,omitempty"`
	ReplicationKeyType  string  `json:"replication_key_type,omitempty"`
}

func NewState() *State {
	return &State{Bookmarks: make(map[string]*Bookmark)}
}

// BookmarkFor returns the bookmark of a stream, creating an empty one if the stream has none yet
func (s *State) BookmarkFor(streamID string) *Bookmark {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]*Bookmark)
	}
	bookmark, found := s.Bookmarks[streamID]
	if !found {
		bookmark = &Bookmark{}
		s.Bookmarks[streamID] = bookmark
	}
	return bookmark
}

func (s *State) SetCurrentlySyncing(streamID string) {
	s.CurrentlySyncing = &streamID
}

func (s *State) ClearCurrentlySyncing() {
	s.CurrentlySyncing = nil
}

// ClearBookmarks drops the bookmarks of the given streams and returns the ids that were present
func (s *State) ClearBookmarks(streamIDs ...string) []string {
	cleared := []string{}
	for _, streamID := range streamIDs {
		if _, found := s.Bookmarks[streamID]; found {
			delete(s.Bookmarks, streamID)
			cleared = append(cleared, streamID)
		}
		if s.CurrentlySyncing != nil && *s.CurrentlySyncing == streamID {
			s.CurrentlySyncing = nil
		}
	}
	return cleared
}

// Clone returns a deep copy that shares no pointers with s
func (s *State) Clone() *State {
	clone := &State{Bookmarks: make(map[string]*Bookmark, len(s.Bookmarks))}
	if s.CurrentlySyncing != nil {
		current := *s.CurrentlySyncing
		clone.CurrentlySyncing = &current
	}
	for streamID, bookmark := range s.Bookmarks {
		if bookmark == nil {
			continue
		}
		clone.Bookmarks[streamID] = bookmark.clone()
	}
	return clone
}

// Validate rejects states that cannot be resumed from: half written bookmarks and unknown type tags
func (s *State) Validate() error {
	streamIDs := make([]string, 0, len(s.Bookmarks))
	for streamID := range s.Bookmarks {
		streamIDs = append(streamIDs, streamID)
	}
	sort.Strings(streamIDs)

	for _, streamID := range streamIDs {
		bookmark := s.Bookmarks[streamID]
		if bookmark == nil {
			continue
		}
		if err := bookmark.validate(); err != nil {
			return fmt.Errorf("stream[%s]: %w", streamID, err)
		}
	}
	return nil
}

// IsFirstRun reports whether the stream has never been assigned a version
func (b *Bookmark) IsFirstRun() bool {
	return b.Version == nil
}

func (b *Bookmark) SetVersion(version int64) {
	b.Version = &version
}

func (b *Bookmark) HasValue() bool {
	return b.ReplicationKeyValue != nil
}

// SetValue records a serialized replication key value together with its tag
func (b *Bookmark) SetValue(value string, tag typeutils.ReplicationKeyType) {
	b.ReplicationKeyValue = &value
	b.ReplicationKeyType = string(tag)
}

// Value restores the native replication key value; ok is false when nothing is recorded yet
func (b *Bookmark) Value() (value any, ok bool, err error) {
	if !b.HasValue() {
		return nil, false, nil
	}
	tag, err := typeutils.ParseReplicationKeyType(b.ReplicationKeyType)
	if err != nil {
		return nil, false, err
	}
	value, err = typeutils.DeserializeKey(*b.ReplicationKeyValue, tag)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read %s value: %s", ErrInvalidBookmark, tag, err)
	}
	return value, true, nil
}

func (b *Bookmark) clone() *Bookmark {
	clone := &Bookmark{
		ReplicationKeyName: b.ReplicationKeyName,
		ReplicationKeyType: b.ReplicationKeyType,
	}
	if b.Version != nil {
		version := *b.Version
		clone.Version = &version
	}
	if b.ReplicationKeyValue != nil {
		value := *b.ReplicationKeyValue
		clone.ReplicationKeyValue = &value
	}
	return clone
}

func (b *Bookmark) validate() error {
	hasValue, hasType := b.ReplicationKeyValue != nil, b.ReplicationKeyType != ""
	switch {
	case hasValue && !hasType:
		return fmt.Errorf("%w: replication_key_value without replication_key_type", ErrInvalidBookmark)
	case hasType && !hasValue:
		return fmt.Errorf("%w: replication_key_type without replication_key_value", ErrInvalidBookmark)
	case hasType:
		if _, err := typeutils.ParseReplicationKeyType(b.ReplicationKeyType); err != nil {
			return err
		}
	}
	return nil
}
