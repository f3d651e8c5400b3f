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

package destination

import (
	"context"

	"github.com/datazip-inc/olake-mongo/types"
)

type Config interface {
	Validate() error
}

// Sink accepts the ordered message stream of a sync
type Sink interface {
	Emit(ctx context.Context, message *types.Message) error
}

// StateSaver persists checkpoints once the records before them are durable
type StateSaver interface {
	Save(ctx context.Context, state *types.State) error
}

type Writer interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// Check verifies the destination is reachable and writable
	Check(ctx context.Context) error
	// Write receives RECORD, ACTIVATE_VERSION and STATE messages in emission order;
	// writers ignore the types they have no use for
	Write(ctx context.Context, message *types.Message) error
	// Flush makes everything written so far durable
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}
