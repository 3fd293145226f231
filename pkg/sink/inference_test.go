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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/sink"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/inference"
)

var _ = Describe("InferenceSink", func() {
	var (
		q      *sink.FrameQueue
		engine *inference.MockEngine
		s      *sink.InferenceSink
	)

	BeforeEach(func() {
		q = newFrameQueue("inference", 20)
		engine = inference.NewMockEngine()
		s = sink.NewInferenceSink(q, engine, 3, 10*time.Millisecond)
	})

	iterate := func(n int) {
		for i := 0; i < n; i++ {
			q.Push(augmented(frame.LapState{}, 0x01))
			Expect(s.Iterate(context.Background())).To(Succeed())
		}
	}

	It("fires the model once the window fills", func() {
		iterate(2)
		Consistently(engine.Calls, 30*time.Millisecond).Should(BeZero())

		iterate(1)
		Eventually(engine.Calls).Should(Equal(1))
		Expect(engine.Windows()).To(Equal([]int{3}))
	})

	It("keeps accumulating while a slow run is in flight", func() {
		engine.Delay = 50 * time.Millisecond

		iterate(6)
		Eventually(engine.Calls, time.Second).Should(Equal(2))
	})

	It("discards the partial window on drain", func() {
		iterate(2)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Expect(s.Drain(ctx)).To(Succeed())
		Expect(engine.Calls()).To(BeZero())
	})

	It("waits for in-flight runs on drain", func() {
		engine.Delay = 30 * time.Millisecond
		iterate(3)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		start := time.Now()
		Expect(s.Drain(ctx)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically(">=", 20*time.Millisecond))
	})
})
