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

package health

import (
	"sync"
	"sync/atomic"
	"time"
)

// PipelineStats is the shared counter the ingest loop feeds and the
// health monitor reads. RecordFrame is on the critical path, so the hot
// fields are atomics and the latency ring takes a short mutex.
type PipelineStats struct {
	frames   atomic.Uint64
	lastNano atomic.Int64
	fixStale atomic.Bool

	mu        sync.Mutex
	latencies []time.Duration
	next      int
	filled    bool
}

// NewPipelineStats creates stats with a rolling latency window of the
// given size.
func NewPipelineStats(window int) *PipelineStats {
	if window < 1 {
		window = 1
	}

	return &PipelineStats{latencies: make([]time.Duration, window)}
}

// RecordFrame notes one completed ingest cycle and its latency.
func (s *PipelineStats) RecordFrame(latency time.Duration) {
	s.frames.Add(1)
	s.lastNano.Store(time.Now().UnixNano())

	s.mu.Lock()
	s.latencies[s.next] = latency
	s.next = (s.next + 1) % len(s.latencies)

	if s.next == 0 {
		s.filled = true
	}
	s.mu.Unlock()
}

// NoteFix records whether the latest position fix was served from the
// stale cache.
func (s *PipelineStats) NoteFix(stale bool) {
	s.fixStale.Store(stale)
}

// FixStale reports whether the most recent position fix was stale.
func (s *PipelineStats) FixStale() bool {
	return s.fixStale.Load()
}

// Frames returns the total completed cycles.
func (s *PipelineStats) Frames() uint64 {
	return s.frames.Load()
}

// LastFrameAt returns when the most recent cycle completed, zero if
// none has.
func (s *PipelineStats) LastFrameAt() time.Time {
	nano := s.lastNano.Load()
	if nano == 0 {
		return time.Time{}
	}

	return time.Unix(0, nano)
}

// LatencyStats is a summary of the rolling ingest latency window.
type LatencyStats struct {
	AvgMs float64 `json:"avgMs"`
	MaxMs float64 `json:"maxMs"`
}

// Latency summarizes the current window.
func (s *PipelineStats) Latency() LatencyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if s.filled {
		n = len(s.latencies)
	}

	if n == 0 {
		return LatencyStats{}
	}

	var sum, max time.Duration

	for _, l := range s.latencies[:n] {
		sum += l
		if l > max {
			max = l
		}
	}

	return LatencyStats{
		AvgMs: float64(sum.Microseconds()) / float64(n) / 1000.0,
		MaxMs: float64(max.Microseconds()) / 1000.0,
	}
}

// rateTracker derives a smoothed frame rate from the cumulative frame
// counter.
type rateTracker struct {
	lastCount uint64
	lastAt    time.Time
	rate      float64
	primed    bool
}

// observe folds one counter reading into the smoothed rate.
func (r *rateTracker) observe(count uint64, at time.Time) float64 {
	if !r.primed {
		r.lastCount = count
		r.lastAt = at
		r.primed = true

		return 0
	}

	dt := at.Sub(r.lastAt).Seconds()
	if dt <= 0 {
		return r.rate
	}

	instant := float64(count-r.lastCount) / dt
	r.lastCount = count
	r.lastAt = at

	// EWMA keeps single quiet ticks from flapping the rate alert.
	const alpha = 0.3
	if r.rate == 0 {
		r.rate = instant
	} else {
		r.rate = alpha*instant + (1-alpha)*r.rate
	}

	return r.rate
}
