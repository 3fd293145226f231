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

	json "github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/health"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
	"github.com/sunchaser-solar/telemetry-core/pkg/sink"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/presentation"
)

var _ = Describe("PresentationSink", func() {
	var (
		q         *sink.FrameQueue
		publisher *presentation.MockPublisher
		manager   *health.SnapshotManager
		s         *sink.PresentationSink
	)

	decode := func(payload []byte) map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(payload, &out)).To(Succeed())

		return out
	}

	BeforeEach(func() {
		q = queue.NewBounded[*frame.AugmentedFrame]("presentation", 1, queue.KeepLatest)
		publisher = presentation.NewMockPublisher()
		manager = health.NewSnapshotManager()
		manager.Update(health.Snapshot{Status: health.StatusOK})
		s = sink.NewPresentationSink(q, publisher, manager, 20*time.Millisecond)
	})

	It("publishes only the latest frame at each tick", func() {
		q.Push(augmented(frame.LapState{LapCount: 1, LapDurationMs: 83460}, 0x01))
		q.Push(augmented(frame.LapState{LapCount: 2, LapDurationMs: 5020}, 0x02))

		Expect(s.Iterate(context.Background())).To(Succeed())

		published := publisher.Published()
		Expect(published).To(HaveLen(1))

		payload := decode(published[0])
		Expect(payload["lapCount"]).To(BeNumerically("==", 2))
		Expect(payload["lapDuration"]).To(Equal("0:05.02"))
		Expect(payload["hasFrame"]).To(BeTrue())
	})

	It("still publishes the health picture on a tick with no frame", func() {
		Expect(s.Iterate(context.Background())).To(Succeed())

		published := publisher.Published()
		Expect(published).To(HaveLen(1))

		payload := decode(published[0])
		Expect(payload["hasFrame"]).To(BeFalse())

		healthDoc, ok := payload["health"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(healthDoc["status"]).To(Equal("ok"))
	})

	It("treats a publish failure as a missed tick", func() {
		publisher.PublishError = errors.New("display offline")
		q.Push(augmented(frame.LapState{LapCount: 1}, 0x01))

		Expect(s.Iterate(context.Background())).To(Succeed())
	})

	It("publishes a final picture on drain", func() {
		q.Push(augmented(frame.LapState{LapCount: 4}, 0x01))

		Expect(s.Drain(context.Background())).To(Succeed())
		Expect(publisher.Published()).To(HaveLen(1))
	})
})
