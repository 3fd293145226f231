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

package monitor

import (
	"context"
	"sync"
)

// MockSampler is a mock implementation of the Sampler interface.
type MockSampler struct {
	mu sync.Mutex

	// Metrics is returned by Sample when SampleError is nil.
	Metrics SystemMetrics

	// SampleError, when set, makes Sample fail.
	SampleError error

	// Tracks calls to methods
	SampleCalled int
}

func NewMockSampler() *MockSampler {
	return &MockSampler{
		Metrics: SystemMetrics{CPUPercent: 12.5, MemUsedPercent: 40.0, Goroutines: 25},
	}
}

// Sample is a mock implementation of Sampler.Sample.
func (m *MockSampler) Sample(_ context.Context) (SystemMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SampleCalled++

	if m.SampleError != nil {
		return SystemMetrics{}, m.SampleError
	}

	return m.Metrics, nil
}

// SetupMockForError configures the mock to return errors.
func (m *MockSampler) SetupMockForError(err error) {
	m.mu.Lock()
	m.SampleError = err
	m.mu.Unlock()
}
