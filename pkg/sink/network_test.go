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

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/sink"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/transmitter"
)

var _ = Describe("NetworkSink", func() {
	var (
		q  *sink.FrameQueue
		tx *transmitter.MockTransmitter
		s  *sink.NetworkSink
	)

	BeforeEach(func() {
		q = newFrameQueue("cloud", 10)
		tx = transmitter.NewMockTransmitter("cloud")
		s = sink.NewNetworkSink("cloud", q, tx,
			backoff.NewRetryPolicy(time.Millisecond, 5*time.Millisecond, 3),
			10*time.Millisecond, logger.ComponentCloudSink)
	})

	It("delivers a frame end to end", func() {
		f := augmented(frame.LapState{LapCount: 1}, 0x01, 0x02)
		q.Push(f)

		Expect(s.Iterate(context.Background())).To(Succeed())

		sent := tx.SentPayloads()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0]).To(Equal(f.Bytes()))
	})

	It("is idle without error on an empty queue", func() {
		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(tx.SendCalled).To(BeZero())
	})

	It("retries transient link failures until they clear", func() {
		tx.FailFirst = 2
		q.Push(augmented(frame.LapState{}, 0x01))

		Expect(s.Iterate(context.Background())).To(Succeed())

		Expect(tx.SendCalled).To(Equal(3))
		Expect(tx.SentPayloads()).To(HaveLen(1))
	})

	It("drops the frame after the retry bound and keeps running", func() {
		tx.SetupMockForError(errors.New("endpoint unreachable"))
		q.Push(augmented(frame.LapState{}, 0x01))

		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(tx.SendCalled).To(Equal(4))
		Expect(tx.SentPayloads()).To(BeEmpty())

		// The sink recovers on the next frame once the link is back.
		tx.ClearError()
		q.Push(augmented(frame.LapState{}, 0x02))

		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(tx.SentPayloads()).To(HaveLen(1))
	})

	It("drops immediately on a permanent error", func() {
		tx.SetupMockForError(backoff.NewPermanentError(errors.New("rejected payload")))
		q.Push(augmented(frame.LapState{}, 0x01))

		Expect(s.Iterate(context.Background())).To(Succeed())
		Expect(tx.SendCalled).To(Equal(1))
	})

	It("sends the backlog once each on drain", func() {
		q.Push(augmented(frame.LapState{}, 0x01))
		q.Push(augmented(frame.LapState{}, 0x02))

		Expect(s.Drain(context.Background())).To(Succeed())
		Expect(tx.SentPayloads()).To(HaveLen(2))
		Expect(q.Depth()).To(BeZero())
	})
})
