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
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/health"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/presentation"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

var _ worker.Runner = (*PresentationSink)(nil)

// displayPayload is what the driver display renders once per second.
type displayPayload struct {
	Timestamp   time.Time       `json:"timestamp"`
	LapCount    uint16          `json:"lapCount"`
	Section     uint8           `json:"section"`
	LapDuration string          `json:"lapDuration"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	FixStale    bool            `json:"fixStale"`
	Health      health.Snapshot `json:"health"`
	HasFrame    bool            `json:"hasFrame"`
}

// PresentationSink publishes the newest frame plus the health snapshot
// to the driver display at a fixed cadence. Its queue holds exactly one
// slot under the keep-latest policy, so the display can lag the car by
// at most one second and never sees two frames out of order.
type PresentationSink struct {
	name      string
	queue     *FrameQueue
	publisher presentation.Publisher
	provider  health.Provider
	interval  time.Duration
	next      time.Time
	logger    *zap.SugaredLogger
}

func NewPresentationSink(q *FrameQueue, publisher presentation.Publisher, provider health.Provider, interval time.Duration) *PresentationSink {
	return &PresentationSink{
		name:      "presentation",
		queue:     q,
		publisher: publisher,
		provider:  provider,
		interval:  interval,
		next:      time.Now().Add(interval),
		logger:    logger.For(logger.ComponentPresentationSink),
	}
}

func (s *PresentationSink) Queue() *FrameQueue {
	return s.queue
}

// Iterate waits for the next display tick, then renders and publishes.
// A tick with no new frame still publishes the health picture.
func (s *PresentationSink) Iterate(ctx context.Context) error {
	if !sleepCtx(ctx, time.Until(s.next)) {
		return nil
	}

	s.next = s.next.Add(s.interval)

	f, _ := s.queue.TryPop()

	return s.publish(ctx, f)
}

func (s *PresentationSink) publish(ctx context.Context, f *frame.AugmentedFrame) error {
	payload := displayPayload{
		Timestamp: time.Now(),
		Health:    s.provider.Snapshot(),
	}

	if f != nil {
		lap := f.Lap()
		fix := f.Fix()

		payload.HasFrame = true
		payload.LapCount = lap.LapCount
		payload.Section = lap.CurrentSection
		payload.LapDuration = frame.FormatLapDuration(lap.LapDurationMs)
		payload.Latitude = fix.Latitude
		payload.Longitude = fix.Longitude
		payload.FixStale = fix.Stale
	}

	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncSinkSend(s.name, "failure")

		return err
	}

	if err := s.publisher.Publish(ctx, data); err != nil {
		// Best effort: the next tick carries fresher data anyway.
		metrics.IncSinkSend(s.name, "dropped")
		s.logger.Debugf("Display publish failed: %v", err)

		return nil
	}

	metrics.IncSinkSend(s.name, "success")

	return nil
}

// Drain publishes the final state once so the display shows the
// shutdown rather than freezing on stale numbers.
func (s *PresentationSink) Drain(ctx context.Context) error {
	f, _ := s.queue.TryPop()

	return s.publish(ctx, f)
}
