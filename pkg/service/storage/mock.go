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

package storage

import (
	"context"
	"sync"
)

// MockWriter is a mock implementation of the Writer interface. It
// records batches in arrival order so tests can verify ordering across
// failure windows.
type MockWriter struct {
	mu sync.Mutex

	// AppendError, when set, makes AppendBatch fail without recording.
	AppendError error

	// Batches records each successful batch in order.
	Batches [][]Record

	// Tracks calls to methods
	AppendBatchCalled int
	CloseCalled       bool
}

func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// AppendBatch is a mock implementation of Writer.AppendBatch.
func (m *MockWriter) AppendBatch(_ context.Context, batch []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendBatchCalled++

	if m.AppendError != nil {
		return m.AppendError
	}

	copied := make([]Record, len(batch))
	copy(copied, batch)
	m.Batches = append(m.Batches, copied)

	return nil
}

func (m *MockWriter) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()

	return nil
}

// Records flattens all recorded batches into one ordered slice.
func (m *MockWriter) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, batch := range m.Batches {
		out = append(out, batch...)
	}

	return out
}

// SetupMockForError configures the mock to return errors.
func (m *MockWriter) SetupMockForError(err error) {
	m.mu.Lock()
	m.AppendError = err
	m.mu.Unlock()
}

// ClearError lets the mock succeed again.
func (m *MockWriter) ClearError() {
	m.mu.Lock()
	m.AppendError = nil
	m.mu.Unlock()
}
