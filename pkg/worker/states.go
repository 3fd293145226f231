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

// Worker lifecycle states. Every pipeline worker moves through the
// same machine: starting on creation, running after the first
// successful iteration, draining once the shutdown signal arrives, and
// stopped when its queue is empty or the drain deadline elapsed.
// Only critical workers can reach failed.
const (
	// StateStarting indicates the worker has been created but has not
	// completed an iteration yet.
	StateStarting = "starting"
	// StateRunning indicates the worker is consuming its queue.
	StateRunning = "running"
	// StateDraining indicates shutdown was signalled and the worker is
	// consuming its backlog without initiating new retries.
	StateDraining = "draining"
	// StateStopped indicates the worker has exited.
	StateStopped = "stopped"
	// StateFailed indicates an unrecoverable fault in a critical
	// worker, surfaced by the health monitor as an ERROR alert.
	StateFailed = "failed"
)

// Worker lifecycle events.
const (
	EventStarted = "started"
	EventDrain   = "drain"
	EventDrained = "drained"
	EventFail    = "fail"
)

// IsTerminal reports whether a state ends the worker's run.
func IsTerminal(state string) bool {
	switch state {
	case StateStopped, StateFailed:
		return true
	default:
		return false
	}
}
