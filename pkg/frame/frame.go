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

// Package frame holds the data model flowing through the pipeline: raw
// bus frames, position fixes, lap state and the augmented frame that
// fans out to the sinks. An AugmentedFrame is immutable once built;
// every sink queue holds the same read-only handle.
package frame

import (
	"time"

	"github.com/google/uuid"
)

// RawFrame is an opaque byte sequence from the vehicle bus plus its
// arrival timestamp. It is owned solely by the ingest loop until it is
// transformed into an AugmentedFrame.
type RawFrame struct {
	Data    []byte
	Arrived time.Time
}

// PositionFix is a GNSS fix from the position collaborator. The ingest
// loop copies it, never mutates it.
type PositionFix struct {
	Latitude  float64
	Longitude float64
	Valid     bool
	// Age is how old the fix was when it was obtained.
	Age time.Duration
	// Stale marks a fix that was reused from cache because the
	// provider did not answer within its timeout.
	Stale bool
}

// LapState is the lap-timing engine's output.
type LapState struct {
	// LapCount is monotonic non-decreasing within a run.
	LapCount uint16
	// CurrentSection is the track section index (0-255 by type).
	CurrentSection uint8
	// LapDurationMs is capped at constants.MaxLapDurationMs by the
	// encoder.
	LapDurationMs uint32
}

// MonotonicFrom returns the state to carry forward given the previous
// one: a lap count regression is rejected wholesale and the previous
// state is kept, as a regressed count can only mean a bad computation.
func (l LapState) MonotonicFrom(prev LapState) LapState {
	if l.LapCount < prev.LapCount {
		return prev
	}

	return l
}

// AugmentedFrame is a RawFrame with the lap fields serialized into it
// at the layout's byte offsets, plus a capture timestamp. It is
// immutable once constructed and shared read-only across all sink
// queues.
type AugmentedFrame struct {
	id       uuid.UUID
	data     []byte
	lap      LapState
	fix      PositionFix
	captured time.Time
}

// ID returns the frame's unique identifier.
func (f *AugmentedFrame) ID() uuid.UUID {
	return f.id
}

// Bytes returns the augmented frame contents. The slice is shared
// between all sinks and must be treated as read-only.
func (f *AugmentedFrame) Bytes() []byte {
	return f.data
}

// Lap returns the lap state encoded into the frame.
func (f *AugmentedFrame) Lap() LapState {
	return f.lap
}

// Fix returns the position fix the lap state was computed from.
func (f *AugmentedFrame) Fix() PositionFix {
	return f.fix
}

// Captured returns the time the frame completed the critical path.
func (f *AugmentedFrame) Captured() time.Time {
	return f.captured
}
