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

package presentation

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of the Publisher interface.
type MockPublisher struct {
	mu sync.Mutex

	// PublishError, when set, is returned by every Publish call.
	PublishError error

	// Payloads records each published payload in order.
	Payloads [][]byte

	// Tracks calls to methods
	PublishCalled int
	CloseCalled   bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish is a mock implementation of Publisher.Publish.
func (m *MockPublisher) Publish(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCalled++

	if m.PublishError != nil {
		return m.PublishError
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.Payloads = append(m.Payloads, buf)

	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()

	return nil
}

// Published returns a copy of the recorded payloads.
func (m *MockPublisher) Published() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.Payloads))
	copy(out, m.Payloads)

	return out
}
