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
	// DefaultNetworkQueueCapacity is the per-sink queue capacity for
	// the cloud and radio transmitters.
	DefaultNetworkQueueCapacity = 200

	// DefaultBusEchoQueueCapacity is the queue capacity for the bus
	// echo sink. The sink is best-effort, a small backlog suffices.
	DefaultBusEchoQueueCapacity = 50

	// DefaultStorageQueueCapacity is the queue capacity for the batch
	// storage sink.
	DefaultStorageQueueCapacity = 500

	// DefaultInferenceQueueCapacity is the queue capacity for the
	// bulk-accumulation sink.
	DefaultInferenceQueueCapacity = 200

	// PresentationQueueCapacity is fixed at one slot with keep-latest
	// overwrite. The presentation sink only ever wants the newest frame.
	PresentationQueueCapacity = 1

	// DefaultRetryBaseInterval is the initial backoff interval for
	// network sink retries.
	DefaultRetryBaseInterval = 100 * time.Millisecond

	// DefaultRetryMaxInterval caps the exponential backoff interval.
	DefaultRetryMaxInterval = 2 * time.Second

	// DefaultMaxRetries bounds retries per frame for network sinks.
	// Exhausting it drops the frame and increments the error counter.
	DefaultMaxRetries = 3

	// DefaultBatchFlushInterval is how often the storage sink flushes
	// its accumulated batch.
	DefaultBatchFlushInterval = 1 * time.Second

	// DefaultStoragePopTimeout bounds each storage queue pop. It must
	// stay well under the flush interval, which it doubles as the
	// flush clock's resolution for.
	DefaultStoragePopTimeout = 100 * time.Millisecond

	// DefaultBatchSizeThreshold flushes the storage batch early when
	// this many frames have accumulated.
	DefaultBatchSizeThreshold = 100

	// DefaultMaxBufferedBatches bounds how many failed batches the
	// storage sink retains for retry. Beyond it the oldest batch is
	// dropped with a WARNING.
	DefaultMaxBufferedBatches = 5

	// DefaultInferenceThreshold is the number of samples accumulated
	// before a batch is handed to the inference collaborator.
	DefaultInferenceThreshold = 1000

	// DefaultPresentationInterval is the fixed publish cadence of the
	// presentation sink, independent of the ingest cadence.
	DefaultPresentationInterval = 1 * time.Second

	// DefaultLapFrameID and DefaultDurationFrameID are the bus frame
	// identifiers the echo sink publishes lap data under.
	DefaultLapFrameID      uint32 = 0x400
	DefaultDurationFrameID uint32 = 0x401
)
