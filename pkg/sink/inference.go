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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/inference"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

var _ worker.Runner = (*InferenceSink)(nil)

// InferenceSink accumulates frames until the window threshold and fires
// the strategy model on the completed window. Model runs are
// fire-and-forget: accumulation of the next window continues while the
// previous run is still executing, and a panicking model costs only its
// own run.
type InferenceSink struct {
	name       string
	queue      *FrameQueue
	engine     inference.Engine
	threshold  int
	popTimeout time.Duration
	logger     *zap.SugaredLogger

	window []*frame.AugmentedFrame
	runs   sync.WaitGroup
}

func NewInferenceSink(q *FrameQueue, engine inference.Engine, threshold int, popTimeout time.Duration) *InferenceSink {
	return &InferenceSink{
		name:       "inference",
		queue:      q,
		engine:     engine,
		threshold:  threshold,
		popTimeout: popTimeout,
		logger:     logger.For(logger.ComponentInferenceSink),
	}
}

func (s *InferenceSink) Queue() *FrameQueue {
	return s.queue
}

func (s *InferenceSink) Iterate(ctx context.Context) error {
	f, ok := s.queue.Pop(s.popTimeout)
	if !ok {
		return nil
	}

	s.window = append(s.window, f)
	if len(s.window) < s.threshold {
		return nil
	}

	window := s.window
	s.window = nil
	s.fire(ctx, window)

	return nil
}

func (s *InferenceSink) fire(ctx context.Context, window []*frame.AugmentedFrame) {
	s.runs.Add(1)

	go func() {
		defer s.runs.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.IncSinkSend(s.name, "failure")
				s.logger.Errorf("Strategy model panicked: %v", r)
			}
		}()

		if err := s.engine.Infer(ctx, window); err != nil {
			metrics.IncSinkSend(s.name, "failure")
			s.logger.Warnf("Strategy model run failed: %v", err)

			return
		}

		metrics.IncSinkSend(s.name, "success")
	}()
}

// Drain discards the partial window, empties the queue and waits for
// in-flight model runs bounded by ctx.
func (s *InferenceSink) Drain(ctx context.Context) error {
	s.window = nil
	s.queue.DiscardAll()

	done := make(chan struct{})

	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
