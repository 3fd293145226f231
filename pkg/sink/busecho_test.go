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

	"github.com/sunchaser-solar/telemetry-core/pkg/constants"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/sink"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/bus"
)

var _ = Describe("BusEchoSink", func() {
	var (
		q         *sink.FrameQueue
		publisher *bus.MockPublisher
		s         *sink.BusEchoSink
	)

	BeforeEach(func() {
		q = newFrameQueue("bus_echo", 10)
		publisher = bus.NewMockPublisher()
		s = sink.NewBusEchoSink(q, publisher,
			constants.DefaultLapFrameID, constants.DefaultDurationFrameID,
			10*time.Millisecond)
	})

	It("echoes lap and duration frames onto the bus", func() {
		q.Push(augmented(frame.LapState{LapCount: 0x0102, CurrentSection: 3, LapDurationMs: 0x00010203}, 0xAA))

		Expect(s.Iterate(context.Background())).To(Succeed())

		published := publisher.PublishedFrames()
		Expect(published).To(HaveLen(2))

		Expect(published[0].FrameID).To(Equal(constants.DefaultLapFrameID))
		Expect(published[0].Data).To(Equal([]byte{0x02, 0x01, 0x03}))

		Expect(published[1].FrameID).To(Equal(constants.DefaultDurationFrameID))
		Expect(published[1].Data).To(Equal([]byte{0x03, 0x02, 0x01, 0x00}))
	})

	It("shrugs off publish failures", func() {
		publisher.PublishError = errors.New("bus adapter detached")
		q.Push(augmented(frame.LapState{LapCount: 1}, 0xAA))

		Expect(s.Iterate(context.Background())).To(Succeed())
	})

	It("echoes the backlog on drain", func() {
		q.Push(augmented(frame.LapState{LapCount: 1}, 0x01))
		q.Push(augmented(frame.LapState{LapCount: 2}, 0x02))

		Expect(s.Drain(context.Background())).To(Succeed())
		Expect(publisher.PublishedFrames()).To(HaveLen(4))
		Expect(q.Depth()).To(BeZero())
	})
})
