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

package inference

import (
	"context"
	"sync"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// MockEngine is a mock implementation of the Engine interface.
type MockEngine struct {
	mu sync.Mutex

	// InferError, when set, is returned by every Infer call.
	InferError error

	// Delay makes Infer block, to verify runs never stall the sink.
	Delay time.Duration

	// WindowSizes records the size of each window received.
	WindowSizes []int

	// Tracks calls to methods
	InferCalled int
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Infer is a mock implementation of Engine.Infer.
func (m *MockEngine) Infer(ctx context.Context, window []*frame.AugmentedFrame) error {
	m.mu.Lock()
	m.InferCalled++
	m.WindowSizes = append(m.WindowSizes, len(window))
	inferErr, delay := m.InferError, m.Delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return inferErr
}

// Calls returns how many windows the mock has received.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.InferCalled
}

// Windows returns a copy of the recorded window sizes.
func (m *MockEngine) Windows() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int, len(m.WindowSizes))
	copy(out, m.WindowSizes)

	return out
}

// SetupMockForError configures the mock to return errors.
func (m *MockEngine) SetupMockForError(err error) {
	m.mu.Lock()
	m.InferError = err
	m.mu.Unlock()
}
