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

package sink_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/sink"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/storage"
)

var _ = Describe("StorageSink", func() {
	var (
		q      *sink.FrameQueue
		writer *storage.MockWriter
	)

	// A long flush interval keeps the clock out of size-threshold specs.
	newSink := func(flushInterval time.Duration, sizeThreshold, maxBuffered int) *sink.StorageSink {
		return sink.NewStorageSink(q, writer, flushInterval, sizeThreshold, maxBuffered, 5*time.Millisecond)
	}

	fill := func(s *sink.StorageSink, n int) {
		for i := 0; i < n; i++ {
			q.Push(augmented(frame.LapState{LapCount: uint16(i)}, byte(i)))
			Expect(s.Iterate(context.Background())).To(Succeed())
		}
	}

	BeforeEach(func() {
		q = newFrameQueue("storage", 50)
		writer = storage.NewMockWriter()
	})

	It("flushes once the batch reaches the size threshold", func() {
		s := newSink(time.Hour, 3, 5)

		fill(s, 2)
		Expect(writer.AppendBatchCalled).To(BeZero())

		fill(s, 1)
		Expect(writer.AppendBatchCalled).To(Equal(1))
		Expect(writer.Records()).To(HaveLen(3))
	})

	It("flushes a partial batch when the interval elapses", func() {
		s := newSink(30*time.Millisecond, 100, 5)

		fill(s, 1)
		Expect(writer.AppendBatchCalled).To(BeZero())

		time.Sleep(40 * time.Millisecond)

		// An empty pop cycle still runs the flush clock.
		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(writer.AppendBatchCalled).To(Equal(1))
		Expect(writer.Records()).To(HaveLen(1))
	})

	It("buffers failed batches and replays them in order", func() {
		s := newSink(time.Hour, 2, 5)

		writer.SetupMockForError(errors.New("disk remounted read-only"))
		fill(s, 4)
		Expect(s.BufferedBatches()).To(Equal(2))
		Expect(writer.Records()).To(BeEmpty())

		writer.ClearError()
		fill(s, 2)

		records := writer.Records()
		Expect(records).To(HaveLen(6))
		for i, r := range records {
			Expect(r.LapCount).To(Equal(uint16(i % 4)))
		}
	})

	It("retries the retained backlog while the queue is idle", func() {
		s := newSink(20*time.Millisecond, 1, 5)

		writer.SetupMockForError(errors.New("sd card ejected"))
		fill(s, 1)
		Expect(s.BufferedBatches()).To(Equal(1))

		// A failed retry on an idle queue must not grow the backlog.
		time.Sleep(30 * time.Millisecond)
		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(s.BufferedBatches()).To(Equal(1))

		writer.ClearError()
		time.Sleep(30 * time.Millisecond)

		// No new frame arrives; the interval alone drives the retry.
		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(s.BufferedBatches()).To(BeZero())
		Expect(writer.Records()).To(HaveLen(1))
	})

	It("sheds the oldest buffered batch past the retention cap", func() {
		s := newSink(time.Hour, 1, 2)

		writer.SetupMockForError(errors.New("disk full"))
		fill(s, 3)

		Expect(s.BufferedBatches()).To(Equal(2))
	})

	It("flushes everything left on drain", func() {
		s := newSink(time.Hour, 100, 5)

		fill(s, 2)
		q.Push(augmented(frame.LapState{}, 0xFF))

		Expect(s.Drain(context.Background())).To(Succeed())
		Expect(writer.Records()).To(HaveLen(3))
		Expect(q.Depth()).To(BeZero())
	})

	It("maps frame fields into the stored record", func() {
		s := newSink(time.Hour, 1, 5)

		f := augmented(frame.LapState{LapCount: 9, CurrentSection: 2, LapDurationMs: 81000}, 0xAB)
		q.Push(f)
		Expect(s.Iterate(context.Background())).To(Succeed())

		records := writer.Records()
		Expect(records).To(HaveLen(1))
		Expect(records[0].FrameID).To(Equal(f.ID().String()))
		Expect(records[0].LapCount).To(Equal(uint16(9)))
		Expect(records[0].CurrentSection).To(Equal(uint8(2)))
		Expect(records[0].LapDurationMs).To(Equal(uint32(81000)))
		Expect(records[0].Data).To(Equal(f.Bytes()))
	})
})
