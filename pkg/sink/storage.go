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

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/storage"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

var _ worker.Runner = (*StorageSink)(nil)

// StorageSink batches frames to the onboard log. A batch flushes when
// it reaches the size threshold or the flush interval elapses. Failed
// batches are kept, oldest first, up to a retention bound; when the
// writer recovers the backlog is flushed before the current batch so
// rows land in capture order.
type StorageSink struct {
	name          string
	queue         *FrameQueue
	writer        storage.Writer
	flushInterval time.Duration
	sizeThreshold int
	maxBuffered   int
	popTimeout    time.Duration
	logger        *zap.SugaredLogger

	pending   []storage.Record
	unflushed [][]storage.Record
	lastFlush time.Time
}

func NewStorageSink(q *FrameQueue, writer storage.Writer, flushInterval time.Duration, sizeThreshold, maxBuffered int, popTimeout time.Duration) *StorageSink {
	return &StorageSink{
		name:          "storage",
		queue:         q,
		writer:        writer,
		flushInterval: flushInterval,
		sizeThreshold: sizeThreshold,
		maxBuffered:   maxBuffered,
		popTimeout:    popTimeout,
		logger:        logger.For(logger.ComponentStorageSink),
		lastFlush:     time.Now(),
	}
}

func (s *StorageSink) Queue() *FrameQueue {
	return s.queue
}

// Iterate pops one frame into the pending batch and flushes when the
// batch is due. A retained backlog is retried on the interval even
// while the queue is idle. The pop timeout doubles as the flush
// clock's resolution, so it must be shorter than the flush interval.
func (s *StorageSink) Iterate(ctx context.Context) error {
	if f, ok := s.queue.Pop(s.popTimeout); ok {
		s.pending = append(s.pending, toRecord(f))
	}

	due := time.Since(s.lastFlush) >= s.flushInterval
	if len(s.pending) >= s.sizeThreshold || (due && (len(s.pending) > 0 || len(s.unflushed) > 0)) {
		s.flush(ctx)
	}

	return nil
}

// flush writes the retained backlog in order, then the current batch.
// Any write failure stops the flush and moves the current batch into
// the backlog.
func (s *StorageSink) flush(ctx context.Context) {
	batch := s.pending
	s.pending = nil
	s.lastFlush = time.Now()

	for len(s.unflushed) > 0 {
		if err := s.writer.AppendBatch(ctx, s.unflushed[0]); err != nil {
			s.retain(batch, err)

			return
		}

		metrics.IncSinkSend(s.name, "success")
		s.unflushed = s.unflushed[1:]
	}

	if len(batch) == 0 {
		return
	}

	if err := s.writer.AppendBatch(ctx, batch); err != nil {
		s.retain(batch, err)

		return
	}

	metrics.IncSinkSend(s.name, "success")
}

// retain parks a failed batch for a later flush, shedding the oldest
// batch when the retention bound is hit.
func (s *StorageSink) retain(batch []storage.Record, cause error) {
	metrics.IncSinkSend(s.name, "failure")
	s.logger.Debugf("Storage flush failed, retaining %d records: %v", len(batch), cause)

	// A backlog-only flush has no current batch to park.
	if len(batch) > 0 {
		s.unflushed = append(s.unflushed, batch)
	}

	for len(s.unflushed) > s.maxBuffered {
		lost := s.unflushed[0]
		s.unflushed = s.unflushed[1:]

		for range lost {
			metrics.IncFramesDropped(s.queue.Name())
		}

		metrics.IncSinkSend(s.name, "dropped")
		s.logger.Warnf("Storage backlog full, discarded oldest batch of %d records", len(lost))
	}
}

// BufferedBatches reports the retained backlog size, for health checks.
func (s *StorageSink) BufferedBatches() int {
	return len(s.unflushed)
}

// Drain pulls the remaining queue into the pending batch and makes a
// final flush attempt.
func (s *StorageSink) Drain(ctx context.Context) error {
	err := drainLoop(ctx, s.queue, func(_ context.Context, f *frame.AugmentedFrame) error {
		s.pending = append(s.pending, toRecord(f))

		return nil
	})

	s.flush(ctx)

	return err
}

func toRecord(f *frame.AugmentedFrame) storage.Record {
	lap := f.Lap()

	return storage.Record{
		FrameID:        f.ID().String(),
		Captured:       f.Captured(),
		LapCount:       lap.LapCount,
		CurrentSection: lap.CurrentSection,
		LapDurationMs:  lap.LapDurationMs,
		Data:           f.Bytes(),
	}
}
