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

package position

import (
	"context"
	"sync"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// MockProvider is a mock implementation of the Provider interface.
type MockProvider struct {
	mu sync.Mutex

	// Fix is returned by CurrentFix when FixError is nil.
	Fix frame.PositionFix

	// FixError, when set, makes CurrentFix fail.
	FixError error

	// Delay makes CurrentFix block before answering, to exercise the
	// cached wrapper's timeout path.
	Delay time.Duration

	// Tracks calls to methods
	CurrentFixCalled int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Fix: frame.PositionFix{Latitude: 38.921, Longitude: -95.677, Valid: true},
	}
}

// CurrentFix is a mock implementation of Provider.CurrentFix.
func (m *MockProvider) CurrentFix(ctx context.Context) (frame.PositionFix, error) {
	m.mu.Lock()
	m.CurrentFixCalled++
	fix, fixErr, delay := m.Fix, m.FixError, m.Delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return frame.PositionFix{}, ctx.Err()
		}
	}

	if fixErr != nil {
		return frame.PositionFix{}, fixErr
	}

	return fix, nil
}

// SetFix updates the fix returned by subsequent calls.
func (m *MockProvider) SetFix(fix frame.PositionFix) {
	m.mu.Lock()
	m.Fix = fix
	m.mu.Unlock()
}

// SetupMockForTimeout configures the mock to block longer than any
// ingest fix timeout.
func (m *MockProvider) SetupMockForTimeout() {
	m.mu.Lock()
	m.Delay = time.Second
	m.mu.Unlock()
}

// SetupMockForError configures the mock to return errors.
func (m *MockProvider) SetupMockForError(err error) {
	m.mu.Lock()
	m.FixError = err
	m.mu.Unlock()
}
