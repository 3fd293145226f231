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

package worker

import (
	"sync"
	"time"
)

// Info is the read-only view of one worker the health monitor observes.
type Info struct {
	ID        string
	State     string
	Critical  bool
	LastError string
	ErrorTime time.Time
}

// Registry tracks all workers in the pipeline so the health monitor
// can observe them without holding references into the pipeline.
type Registry struct {
	mu      sync.RWMutex
	workers []*Worker
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a worker. Registration order is preserved in Snapshot.
func (r *Registry) Register(w *Worker) {
	r.mu.Lock()
	r.workers = append(r.workers, w)
	r.mu.Unlock()
}

// Snapshot returns the current state of every registered worker.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.workers))

	for _, w := range r.workers {
		info := Info{
			ID:       w.ID(),
			State:    w.State(),
			Critical: w.Critical(),
		}

		if err, at := w.LastError(); err != nil {
			info.LastError = err.Error()
			info.ErrorTime = at
		}

		infos = append(infos, info)
	}

	return infos
}
