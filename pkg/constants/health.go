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
	// DefaultSampleInterval is the fine-grained health sampling interval.
	DefaultSampleInterval = 1 * time.Second

	// DefaultStatsInterval is the coarse interval for logging
	// performance statistics and sampling system metrics.
	DefaultStatsInterval = 10 * time.Second

	// QueueWarningRatio is the depth/capacity ratio beyond which a
	// queue is reported as a WARNING.
	QueueWarningRatio = 0.8

	// RateWarningFraction flags a WARNING when the observed frame rate
	// falls below this fraction of the nominal cadence.
	RateWarningFraction = 0.5

	// RateSettleTime suppresses rate warnings while the pipeline is
	// still coming up.
	RateSettleTime = 10 * time.Second

	// RecentEventsKept bounds the warning/error rings carried in a
	// health snapshot.
	RecentEventsKept = 5

	// LatencyWindow is the number of ingest cycles in the rolling
	// latency average.
	LatencyWindow = 32
)
