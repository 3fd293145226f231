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

// Package dispatch fans frames out from the main queue to every sink
// queue. The fan-out is non-blocking per sink: a full sink queue sheds
// per its own policy and the other sinks still get the frame, so one
// stalled consumer can never starve the rest.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

// FrameQueue matches the queue type the pipeline moves frames through.
type FrameQueue = queue.Bounded[*frame.AugmentedFrame]

var _ worker.Runner = (*Dispatcher)(nil)

// Dispatcher is the single consumer of the main queue. Each frame is
// offered to every registered sink queue exactly once, in registration
// order, without waiting on any of them.
type Dispatcher struct {
	main       *FrameQueue
	outputs    []*FrameQueue
	popTimeout time.Duration
	logger     *zap.SugaredLogger
}

func NewDispatcher(main *FrameQueue, popTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		main:       main,
		popTimeout: popTimeout,
		logger:     logger.For(logger.ComponentDispatcher),
	}
}

// Attach registers a sink queue for fan-out.
func (d *Dispatcher) Attach(q *FrameQueue) {
	d.outputs = append(d.outputs, q)
}

// Iterate moves one frame from the main queue to all sink queues.
func (d *Dispatcher) Iterate(_ context.Context) error {
	f, ok := d.main.Pop(d.popTimeout)
	if !ok {
		return nil
	}

	d.fanOut(f)

	return nil
}

func (d *Dispatcher) fanOut(f *frame.AugmentedFrame) {
	for _, out := range d.outputs {
		if dropped := out.Push(f); dropped {
			metrics.IncFramesDropped(out.Name())
			d.logger.Debugf("Queue %s full, shed one frame for %s", out.Name(), f.ID())
		}
	}
}

// Drain forwards whatever the ingest loop managed to enqueue before it
// stopped, then lets the sinks drain their own queues.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, ok := d.main.TryPop()
		if !ok {
			return nil
		}

		d.fanOut(f)
	}
}
