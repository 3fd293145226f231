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

package transmitter

import (
	"context"
	"errors"
	"sync"
)

// MockTransmitter is a mock implementation of the Transmitter
// interface.
type MockTransmitter struct {
	mu sync.Mutex

	// NameValue is returned by Name.
	NameValue string

	// SendError, when set, is returned by every Send call.
	SendError error

	// FailFirst makes the first n Send calls fail with a link error
	// before the mock starts succeeding.
	FailFirst int

	// Sent records each successful payload in order.
	Sent [][]byte

	// Tracks calls to methods
	SendCalled int
}

func NewMockTransmitter(name string) *MockTransmitter {
	return &MockTransmitter{NameValue: name}
}

func (m *MockTransmitter) Name() string {
	return m.NameValue
}

// Send is a mock implementation of Transmitter.Send.
func (m *MockTransmitter) Send(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SendCalled++

	if m.SendError != nil {
		return m.SendError
	}

	if m.FailFirst > 0 {
		m.FailFirst--

		return errors.New("link unavailable")
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.Sent = append(m.Sent, buf)

	return nil
}

// SentPayloads returns a copy of the successfully sent payloads.
func (m *MockTransmitter) SentPayloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.Sent))
	copy(out, m.Sent)

	return out
}

// SetupMockForError configures the mock to return errors.
func (m *MockTransmitter) SetupMockForError(err error) {
	m.mu.Lock()
	m.SendError = err
	m.mu.Unlock()
}

// ClearError lets the mock succeed again.
func (m *MockTransmitter) ClearError() {
	m.mu.Lock()
	m.SendError = nil
	m.mu.Unlock()
}
