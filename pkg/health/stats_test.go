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

package health_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/health"
)

var _ = Describe("PipelineStats", func() {
	It("counts frames and remembers the last arrival", func() {
		stats := health.NewPipelineStats(8)
		Expect(stats.Frames()).To(BeZero())
		Expect(stats.LastFrameAt().IsZero()).To(BeTrue())

		before := time.Now()
		stats.RecordFrame(2 * time.Millisecond)
		stats.RecordFrame(4 * time.Millisecond)

		Expect(stats.Frames()).To(Equal(uint64(2)))
		Expect(stats.LastFrameAt()).To(BeTemporally(">=", before))
	})

	It("reports average and max latency over the window", func() {
		stats := health.NewPipelineStats(8)

		stats.RecordFrame(10 * time.Millisecond)
		stats.RecordFrame(20 * time.Millisecond)
		stats.RecordFrame(30 * time.Millisecond)

		lat := stats.Latency()
		Expect(lat.AvgMs).To(BeNumerically("~", 20, 0.01))
		Expect(lat.MaxMs).To(BeNumerically("~", 30, 0.01))
	})

	It("forgets samples pushed out of the window", func() {
		stats := health.NewPipelineStats(2)

		stats.RecordFrame(100 * time.Millisecond)
		stats.RecordFrame(10 * time.Millisecond)
		stats.RecordFrame(20 * time.Millisecond)

		lat := stats.Latency()
		Expect(lat.MaxMs).To(BeNumerically("~", 20, 0.01))
		Expect(lat.AvgMs).To(BeNumerically("~", 15, 0.01))
	})

	It("tracks the staleness of the latest fix", func() {
		stats := health.NewPipelineStats(4)
		Expect(stats.FixStale()).To(BeFalse())

		stats.NoteFix(true)
		Expect(stats.FixStale()).To(BeTrue())

		stats.NoteFix(false)
		Expect(stats.FixStale()).To(BeFalse())
	})

	It("reports zero latency before any frame", func() {
		stats := health.NewPipelineStats(4)

		lat := stats.Latency()
		Expect(lat.AvgMs).To(BeZero())
		Expect(lat.MaxMs).To(BeZero())
	})
})
