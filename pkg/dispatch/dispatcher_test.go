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

package dispatch_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/dispatch"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
)

func makeFrame(seq byte) *frame.AugmentedFrame {
	raw := frame.RawFrame{Data: []byte{seq}, Arrived: time.Now()}

	return frame.Augment(raw, frame.LapState{}, frame.PositionFix{}, frame.DefaultLayout())
}

var _ = Describe("Dispatcher", func() {
	var (
		main *dispatch.FrameQueue
		d    *dispatch.Dispatcher
	)

	BeforeEach(func() {
		main = queue.NewBounded[*frame.AugmentedFrame]("main", 10, queue.DropOldest)
		d = dispatch.NewDispatcher(main, 10*time.Millisecond)
	})

	It("offers each frame to every sink queue", func() {
		a := queue.NewBounded[*frame.AugmentedFrame]("a", 10, queue.DropOldest)
		b := queue.NewBounded[*frame.AugmentedFrame]("b", 10, queue.DropOldest)
		d.Attach(a)
		d.Attach(b)

		f := makeFrame(1)
		main.Push(f)

		Expect(d.Iterate(context.Background())).To(Succeed())

		got, ok := a.TryPop()
		Expect(ok).To(BeTrue())
		Expect(got.ID()).To(Equal(f.ID()))

		got, ok = b.TryPop()
		Expect(ok).To(BeTrue())
		Expect(got.ID()).To(Equal(f.ID()))
	})

	It("isolates a full queue from its siblings", func() {
		full := queue.NewBounded[*frame.AugmentedFrame]("full", 1, queue.DropOldest)
		open := queue.NewBounded[*frame.AugmentedFrame]("open", 10, queue.DropOldest)
		d.Attach(full)
		d.Attach(open)

		first := makeFrame(1)
		second := makeFrame(2)

		main.Push(first)
		main.Push(second)

		Expect(d.Iterate(context.Background())).To(Succeed())
		Expect(d.Iterate(context.Background())).To(Succeed())

		// The full queue kept only the newest frame.
		got, ok := full.TryPop()
		Expect(ok).To(BeTrue())
		Expect(got.ID()).To(Equal(second.ID()))

		// The open queue received both, in order.
		got, _ = open.TryPop()
		Expect(got.ID()).To(Equal(first.ID()))
		got, _ = open.TryPop()
		Expect(got.ID()).To(Equal(second.ID()))
	})

	It("is idle without error on an empty main queue", func() {
		Expect(d.Iterate(context.Background())).To(Succeed())
	})

	It("forwards the backlog on drain", func() {
		out := queue.NewBounded[*frame.AugmentedFrame]("out", 10, queue.DropOldest)
		d.Attach(out)

		main.Push(makeFrame(1))
		main.Push(makeFrame(2))

		Expect(d.Drain(context.Background())).To(Succeed())
		Expect(main.Depth()).To(BeZero())
		Expect(out.Depth()).To(Equal(2))
	})
})
