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

package bus

import (
	"context"
	"sync"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// MockSource is a mock implementation of the Source interface.
type MockSource struct {
	mu sync.Mutex

	// Frames are handed out in order; when exhausted Receive returns
	// ErrNoFrame.
	Frames []frame.RawFrame

	// ReceiveError, when set, is returned instead of a frame.
	ReceiveError error

	// Tracks calls to methods
	ReceiveCalled int
	CloseCalled   bool
}

func NewMockSource(frames ...frame.RawFrame) *MockSource {
	return &MockSource{Frames: frames}
}

// Receive is a mock implementation of Source.Receive. Like the real
// sources it waits out the timeout when no frame is queued.
func (m *MockSource) Receive(ctx context.Context, timeout time.Duration) (frame.RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReceiveCalled++

	if m.ReceiveError != nil {
		return frame.RawFrame{}, m.ReceiveError
	}

	if len(m.Frames) == 0 {
		m.mu.Unlock()
		wait(ctx, timeout)
		m.mu.Lock()

		if len(m.Frames) == 0 {
			return frame.RawFrame{}, ErrNoFrame
		}
	}

	f := m.Frames[0]
	m.Frames = m.Frames[1:]

	return f, nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()

	return nil
}

func wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Push appends a frame for Receive to hand out.
func (m *MockSource) Push(f frame.RawFrame) {
	m.mu.Lock()
	m.Frames = append(m.Frames, f)
	m.mu.Unlock()
}

// PublishedFrame records one Publish call on the mock publisher.
type PublishedFrame struct {
	FrameID uint32
	Data    []byte
}

// MockPublisher is a mock implementation of the Publisher interface.
type MockPublisher struct {
	mu sync.Mutex

	// PublishError, when set, is returned by every Publish call.
	PublishError error

	// Published records each call in order.
	Published []PublishedFrame
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish is a mock implementation of Publisher.Publish.
func (m *MockPublisher) Publish(_ context.Context, frameID uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.Published = append(m.Published, PublishedFrame{FrameID: frameID, Data: buf})

	return nil
}

// PublishedFrames returns a copy of the recorded calls.
func (m *MockPublisher) PublishedFrames() []PublishedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedFrame, len(m.Published))
	copy(out, m.Published)

	return out
}
