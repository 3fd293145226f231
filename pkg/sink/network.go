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

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/transmitter"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

var _ worker.Runner = (*NetworkSink)(nil)

// NetworkSink delivers frames over a network link with bounded retries.
// It backs both the LTE uplink and the radio link; the two differ only
// in queue capacity and transmitter. A frame that exhausts its retries
// is dropped and counted exactly once, and the sink moves on.
type NetworkSink struct {
	name       string
	queue      *FrameQueue
	tx         transmitter.Transmitter
	retry      *backoff.RetryPolicy
	popTimeout time.Duration
	logger     *zap.SugaredLogger
}

// NewNetworkSink builds a sink consuming from q and sending via tx.
func NewNetworkSink(name string, q *FrameQueue, tx transmitter.Transmitter, retry *backoff.RetryPolicy, popTimeout time.Duration, component string) *NetworkSink {
	return &NetworkSink{
		name:       name,
		queue:      q,
		tx:         tx,
		retry:      retry,
		popTimeout: popTimeout,
		logger:     logger.For(component),
	}
}

// Queue exposes the sink's queue for dispatch wiring.
func (s *NetworkSink) Queue() *FrameQueue {
	return s.queue
}

// Iterate pops one frame and delivers it, retrying transient link
// failures per the policy. An idle pop window is not an error.
func (s *NetworkSink) Iterate(ctx context.Context) error {
	f, ok := s.queue.Pop(s.popTimeout)
	if !ok {
		return nil
	}

	return s.deliver(ctx, f)
}

func (s *NetworkSink) deliver(ctx context.Context, f *frame.AugmentedFrame) error {
	s.retry.Reset()

	for {
		err := s.tx.Send(ctx, f.Bytes())
		if err == nil {
			metrics.IncSinkSend(s.name, "success")

			return nil
		}

		metrics.IncSinkSend(s.name, "failure")

		if backoff.IsPermanentError(err) {
			s.drop(f, err)

			return nil
		}

		delay, retryable := s.retry.Next()
		if !retryable {
			s.drop(f, err)

			return nil
		}

		metrics.IncSinkRetry(s.name)

		if !sleepCtx(ctx, delay) {
			// Shutdown during backoff; the frame is dropped with the
			// rest of the backlog by the drain protocol.
			s.drop(f, ctx.Err())

			return nil
		}
	}
}

// drop counts a discarded frame exactly once.
func (s *NetworkSink) drop(f *frame.AugmentedFrame, cause error) {
	metrics.IncSinkSend(s.name, "dropped")
	metrics.IncFramesDropped(s.queue.Name())
	s.logger.Warnf("%s dropped frame %s after %d retries: %v", s.name, f.ID(), s.retry.Attempts(), cause)
}

// Drain attempts one unretried send per remaining frame.
func (s *NetworkSink) Drain(ctx context.Context) error {
	return drainLoop(ctx, s.queue, func(ctx context.Context, f *frame.AugmentedFrame) error {
		if err := s.tx.Send(ctx, f.Bytes()); err != nil {
			metrics.IncSinkSend(s.name, "dropped")

			return err
		}

		metrics.IncSinkSend(s.name, "success")

		return nil
	})
}
