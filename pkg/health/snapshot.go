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

// Package health observes the pipeline and publishes a passive health
// snapshot. The monitor never takes corrective action; it classifies
// what it sees and leaves recovery to the workers' own policies.
package health

import (
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/sunchaser-solar/telemetry-core/pkg/service/monitor"
)

// Severity levels for alerts and events.
const (
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Overall status values.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// WorkerStat is one worker's state as seen at snapshot time.
type WorkerStat struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Critical  bool      `json:"critical"`
	LastError string    `json:"lastError,omitempty"`
	ErrorTime time.Time `json:"errorTime,omitempty"`
}

// QueueStat is one queue's fill level at snapshot time.
type QueueStat struct {
	Name     string  `json:"name"`
	Depth    int     `json:"depth"`
	Capacity int     `json:"capacity"`
	Ratio    float64 `json:"ratio"`
}

// Alert is one active condition derived from the current snapshot.
type Alert struct {
	Severity string `json:"severity"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

// Event is one past alert kept in the recent-events ring.
type Event struct {
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Snapshot is the full passive health picture. It is plain data so the
// status API and the driver display can serialize it directly.
type Snapshot struct {
	Taken         time.Time             `json:"taken"`
	Status        string                `json:"status"`
	Workers       []WorkerStat          `json:"workers"`
	Queues        []QueueStat           `json:"queues"`
	MessageRateHz float64               `json:"messageRateHz"`
	DataStale     bool                  `json:"dataStale"`
	FixStale      bool                  `json:"fixStale"`
	Latency       LatencyStats          `json:"latency"`
	System        monitor.SystemMetrics `json:"system"`
	Alerts        []Alert               `json:"alerts,omitempty"`
	Recent        []Event               `json:"recent,omitempty"`
}

// Provider hands out the latest health snapshot.
type Provider interface {
	Snapshot() Snapshot
}

// SnapshotManager holds the latest snapshot. Readers get a deep copy so
// the monitor can build the next one without anyone holding references
// into it.
type SnapshotManager struct {
	mu     sync.RWMutex
	latest Snapshot
}

func NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{latest: Snapshot{Status: StatusOK}}
}

// Update replaces the latest snapshot.
func (m *SnapshotManager) Update(s Snapshot) {
	m.mu.Lock()
	m.latest = s
	m.mu.Unlock()
}

// Snapshot returns a deep copy of the latest snapshot.
func (m *SnapshotManager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out Snapshot
	if err := deepcopy.Copy(&out, &m.latest); err != nil {
		// Snapshot is plain data; a copy failure means a programming
		// error in the type itself.
		return m.latest
	}

	return out
}
