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

package constants

import "time"

const (
	// DefaultFramePeriod is the nominal interval between bus frames.
	// The firmware emits three frames per second.
	DefaultFramePeriod = 333 * time.Millisecond

	// DefaultIngestBudget is the hard per-cycle latency budget for the
	// critical path. Exceeding it does not abort the cycle, it is
	// surfaced as a WARNING by the health monitor.
	DefaultIngestBudget = 50 * time.Millisecond

	// DefaultFixTimeout is the bounded wait for a position fix before
	// the ingest loop falls back to the cached fix.
	DefaultFixTimeout = 20 * time.Millisecond

	// DefaultLapBudget is the latency budget for the lap-timing engine.
	// Exceeding it means the previous LapState is reused.
	DefaultLapBudget = 15 * time.Millisecond

	// DefaultBusReceiveTimeout bounds the blocking receive on the bus
	// source so the ingest loop can observe shutdown.
	DefaultBusReceiveTimeout = 500 * time.Millisecond

	// DefaultPopTimeout bounds a worker's queue pop so it can
	// periodically check its shutdown flag.
	DefaultPopTimeout = 1 * time.Second

	// DefaultGracePeriod is the bound on the drain phase during
	// shutdown. Workers that have not stopped by then abandon their
	// remaining queue contents.
	DefaultGracePeriod = 5 * time.Second

	// DefaultMainQueueCapacity is the capacity of the queue between
	// ingest and the dispatcher.
	DefaultMainQueueCapacity = 100

	// MaxLapDurationMs caps the lap duration field, matching the
	// upper bound of the externally versioned data format.
	MaxLapDurationMs = 600000

	// WorkerFailurePause is the pause after a failed iteration, so a
	// collaborator that errors instantly cannot spin a worker hot.
	WorkerFailurePause = 100 * time.Millisecond
)
