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

package laptimer

import (
	"context"
	"sync"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// MockEngine is a mock implementation of the Engine interface.
type MockEngine struct {
	mu sync.Mutex

	// State is returned by Update when UpdateError is nil.
	State frame.LapState

	// UpdateError, when set, makes Update fail.
	UpdateError error

	// Delay makes Update block before answering, to exercise the
	// ingest loop's lap budget.
	Delay time.Duration

	// Tracks calls to methods
	UpdateCalled int
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Update is a mock implementation of Engine.Update.
func (m *MockEngine) Update(ctx context.Context, _ frame.PositionFix) (frame.LapState, error) {
	m.mu.Lock()
	m.UpdateCalled++
	state, updateErr, delay := m.State, m.UpdateError, m.Delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return frame.LapState{}, ctx.Err()
		}
	}

	if updateErr != nil {
		return frame.LapState{}, updateErr
	}

	return state, nil
}

// SetState updates the lap state returned by subsequent calls.
func (m *MockEngine) SetState(state frame.LapState) {
	m.mu.Lock()
	m.State = state
	m.mu.Unlock()
}

// SetupMockForError configures the mock to return errors.
func (m *MockEngine) SetupMockForError(err error) {
	m.mu.Lock()
	m.UpdateError = err
	m.mu.Unlock()
}
