// Copyright 2025 Sunchaser Solar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bus abstracts the vehicle bus the coordinator reads frames
// from and echoes lap data back onto.
package bus

import (
	"context"
	"errors"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// ErrNoFrame is returned by Receive when no frame arrived within the
// timeout. It is an expected idle condition, not a fault.
var ErrNoFrame = errors.New("no frame available")

// Source delivers raw frames from the vehicle bus.
type Source interface {
	// Receive blocks up to timeout for the next frame. Returns
	// ErrNoFrame when the bus was quiet for the whole window.
	Receive(ctx context.Context, timeout time.Duration) (frame.RawFrame, error)

	// Close releases the underlying bus handle.
	Close() error
}

// Publisher writes frames onto the vehicle bus under a given frame id.
// The bus echo sink uses it to feed lap data back to the driver display
// nodes.
type Publisher interface {
	Publish(ctx context.Context, frameID uint32, data []byte) error
}
