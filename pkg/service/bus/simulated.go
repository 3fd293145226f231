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
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
)

// SimulatedSource produces synthetic telemetry frames at a fixed
// cadence for bench runs without vehicle hardware. Each frame packs
// speed, pack voltage and pack current as little-endian float32.
type SimulatedSource struct {
	period time.Duration
	next   time.Time
	rng    *rand.Rand
	logger *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// NewSimulatedSource returns a source emitting one frame per period.
func NewSimulatedSource(period time.Duration) *SimulatedSource {
	return &SimulatedSource{
		period: period,
		next:   time.Now(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.For(logger.ComponentBusSource),
	}
}

// Receive waits for the next simulated frame or the timeout, whichever
// comes first.
func (s *SimulatedSource) Receive(ctx context.Context, timeout time.Duration) (frame.RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return frame.RawFrame{}, ErrNoFrame
	}

	wait := time.Until(s.next)
	if wait > timeout {
		// Next frame is outside this receive window.
		s.sleep(ctx, timeout)

		return frame.RawFrame{}, ErrNoFrame
	}

	if wait > 0 && !s.sleep(ctx, wait) {
		return frame.RawFrame{}, ctx.Err()
	}

	s.next = s.next.Add(s.period)

	speed := 18.0 + s.rng.Float64()*4.0       // m/s
	voltage := 96.0 + s.rng.Float64()*8.0     // V
	current := -5.0 + s.rng.Float64()*25.0    // A

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(float32(speed)))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(float32(voltage)))
	binary.LittleEndian.PutUint32(data[8:], math.Float32bits(float32(current)))

	return frame.RawFrame{Data: data, Arrived: time.Now()}, nil
}

func (s *SimulatedSource) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *SimulatedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return nil
}

// LoggingPublisher is the simulated counterpart of a bus publisher: it
// records echoed frames in the debug log instead of writing hardware.
type LoggingPublisher struct {
	logger *zap.SugaredLogger
}

func NewLoggingPublisher() *LoggingPublisher {
	return &LoggingPublisher{logger: logger.For(logger.ComponentBusSource)}
}

func (p *LoggingPublisher) Publish(_ context.Context, frameID uint32, data []byte) error {
	p.logger.Debugf("Bus echo 0x%03X: % X", frameID, data)

	return nil
}
