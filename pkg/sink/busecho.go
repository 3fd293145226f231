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

package sink

import (
	"context"
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/bus"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

var _ worker.Runner = (*BusEchoSink)(nil)

// BusEchoSink feeds lap data back onto the vehicle bus for the display
// nodes: lap count and section under one frame id, running lap duration
// under another. Delivery is best effort with no retries; the next
// frame supersedes a lost one within a third of a second.
type BusEchoSink struct {
	name            string
	queue           *FrameQueue
	publisher       bus.Publisher
	lapFrameID      uint32
	durationFrameID uint32
	popTimeout      time.Duration
	logger          *zap.SugaredLogger
}

func NewBusEchoSink(q *FrameQueue, publisher bus.Publisher, lapFrameID, durationFrameID uint32, popTimeout time.Duration) *BusEchoSink {
	return &BusEchoSink{
		name:            "bus_echo",
		queue:           q,
		publisher:       publisher,
		lapFrameID:      lapFrameID,
		durationFrameID: durationFrameID,
		popTimeout:      popTimeout,
		logger:          logger.For(logger.ComponentBusEchoSink),
	}
}

func (s *BusEchoSink) Queue() *FrameQueue {
	return s.queue
}

func (s *BusEchoSink) Iterate(ctx context.Context) error {
	f, ok := s.queue.Pop(s.popTimeout)
	if !ok {
		return nil
	}

	return s.echo(ctx, f)
}

func (s *BusEchoSink) echo(ctx context.Context, f *frame.AugmentedFrame) error {
	lap := f.Lap()

	lapData := make([]byte, 3)
	binary.LittleEndian.PutUint16(lapData, lap.LapCount)
	lapData[2] = lap.CurrentSection

	durData := make([]byte, 4)
	binary.LittleEndian.PutUint32(durData, lap.LapDurationMs)

	if err := s.publisher.Publish(ctx, s.lapFrameID, lapData); err != nil {
		s.miss(err)

		return nil
	}

	if err := s.publisher.Publish(ctx, s.durationFrameID, durData); err != nil {
		s.miss(err)

		return nil
	}

	metrics.IncSinkSend(s.name, "success")

	return nil
}

func (s *BusEchoSink) miss(err error) {
	metrics.IncSinkSend(s.name, "dropped")
	s.logger.Debugf("Bus echo publish failed: %v", err)
}

func (s *BusEchoSink) Drain(ctx context.Context) error {
	return drainLoop(ctx, s.queue, s.echo)
}
