/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"time"

	"github.com/datazip-inc/olake-mongo/utils/typeutils"
)

type MessageType string

const (
	LogMessage              MessageType = "LOG"
	ConnectionStatusMessage MessageType = "CONNECTION_STATUS"
	StateMessage            MessageType = "STATE"
	RecordMessage           MessageType = "RECORD"
	ActivateVersionMessage  MessageType = "ACTIVATE_VERSION"
	SpecMessage             MessageType = "SPEC"
)

type ConnectionStatus string

const (
	ConnectionSucceed ConnectionStatus = "SUCCEEDED"
	ConnectionFailed  ConnectionStatus = "FAILED"
)

// Message is the envelope for everything the connector writes downstream
type Message struct {
	Type             MessageType    `json:"type"`
	Stream           string         `json:"stream,omitempty"`
	Record           map[string]any `json:"record,omitempty"`
	Version          int64          `json:"version,omitempty"`
	TimeExtracted    string         `json:"time_extracted,omitempty"`
	Value            *State         `json:"value,omitempty"`
	Log              *Log           `json:"log,omitempty"`
	ConnectionStatus *StatusRow     `json:"connectionStatus,omitempty"`
	Spec             map[string]any `json:"spec,omitempty"`
}

// Log is a dto for log message serialization
type Log struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusRow is a dto for check result serialization
type StatusRow struct {
	Status  ConnectionStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
}

// NewRecordMessage wraps a transformed row. extractedAt is rendered in UTC with millisecond precision.
func NewRecordMessage(stream string, record map[string]any, version int64, extractedAt time.Time) *Message {
	return &Message{
		Type:          RecordMessage,
		Stream:        stream,
		Record:        record,
		Version:       version,
		TimeExtracted: typeutils.FormatTime(extractedAt),
	}
}

// NewStateMessage captures a deep copy of state so later mutations do not leak into the emitted snapshot.
func NewStateMessage(state *State) *Message {
	return &Message{
		Type:  StateMessage,
		Value: state.Clone(),
	}
}

func NewActivateVersionMessage(stream string, version int64) *Message {
	return &Message{
		Type:    ActivateVersionMessage,
		Stream:  stream,
		Version: version,
	}
}
