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
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/health"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/monitor"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

// failingRunner fails its first iteration with a permanent fault.
type failingRunner struct{}

func (r *failingRunner) Iterate(_ context.Context) error {
	return backoff.NewPermanentError(errors.New("bus adapter gone"))
}

func (r *failingRunner) Drain(_ context.Context) error {
	return nil
}

// idleRunner iterates forever without doing anything.
type idleRunner struct{}

func (r *idleRunner) Iterate(ctx context.Context) error {
	select {
	case <-time.After(time.Millisecond):
	case <-ctx.Done():
	}

	return nil
}

func (r *idleRunner) Drain(_ context.Context) error {
	return nil
}

var _ = Describe("Monitor", func() {
	var (
		registry *worker.Registry
		manager  *health.SnapshotManager
		sampler  *monitor.MockSampler
		stats    *health.PipelineStats
		opts     health.Options
	)

	newMonitor := func(queues ...health.QueueInfo) *health.Monitor {
		return health.NewMonitor(opts, registry, queues, stats, sampler, manager)
	}

	observe := func(m *health.Monitor) health.Snapshot {
		Expect(m.Iterate(context.Background())).To(Succeed())

		return manager.Snapshot()
	}

	BeforeEach(func() {
		registry = worker.NewRegistry()
		manager = health.NewSnapshotManager()
		sampler = monitor.NewMockSampler()
		stats = health.NewPipelineStats(8)
		opts = health.Options{
			SampleInterval: time.Millisecond,
			StatsInterval:  time.Hour,
			ExpectedRateHz: 3,
			FramePeriod:    333 * time.Millisecond,
		}
	})

	It("reports ok while workers are starting", func() {
		registry.Register(worker.New("ingest", true, &idleRunner{}))

		snap := observe(newMonitor())
		Expect(snap.Status).To(Equal(health.StatusOK))
		Expect(snap.Alerts).To(BeEmpty())
		Expect(snap.Workers).To(HaveLen(1))
		Expect(snap.Workers[0].State).To(Equal(worker.StateStarting))
	})

	It("warns when a queue nears capacity", func() {
		q := queue.NewBounded[int]("cloud", 10, queue.DropOldest)
		for i := 0; i < 8; i++ {
			q.Push(i)
		}

		snap := observe(newMonitor(q))
		Expect(snap.Status).To(Equal(health.StatusWarning))
		Expect(snap.Alerts).To(HaveLen(1))
		Expect(snap.Alerts[0].Source).To(Equal("cloud"))
		Expect(snap.Queues[0].Ratio).To(BeNumerically("~", 0.8, 0.001))
	})

	It("raises an error for a failed critical worker", func() {
		w := worker.New("ingest", true, &failingRunner{})
		registry.Register(w)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			_ = w.Run(ctx, time.Second)
		}()
		Eventually(w.State).Should(Equal(worker.StateFailed))

		snap := observe(newMonitor())
		Expect(snap.Status).To(Equal(health.StatusError))
		Expect(snap.Alerts).To(HaveLen(1))
		Expect(snap.Alerts[0].Severity).To(Equal(health.SeverityError))
		Expect(snap.Workers[0].LastError).To(ContainSubstring("bus adapter gone"))
	})

	It("warns when ingest latency runs over budget", func() {
		opts.LatencyBudget = 50 * time.Millisecond
		stats.RecordFrame(80 * time.Millisecond)
		stats.RecordFrame(90 * time.Millisecond)

		snap := observe(newMonitor())
		Expect(snap.Status).To(Equal(health.StatusWarning))
		Expect(snap.Alerts[0].Message).To(ContainSubstring("over the 50 ms budget"))
	})

	It("surfaces fix staleness in the snapshot", func() {
		stats.NoteFix(true)

		snap := observe(newMonitor())
		Expect(snap.FixStale).To(BeTrue())
	})

	It("records an alert as a recent event only once", func() {
		q := queue.NewBounded[int]("cloud", 10, queue.DropOldest)
		for i := 0; i < 10; i++ {
			q.Push(i)
		}

		m := newMonitor(q)
		first := observe(m)
		second := observe(m)

		Expect(first.Recent).To(HaveLen(1))
		Expect(second.Recent).To(HaveLen(1))
	})

	It("caps the recent event ring", func() {
		queues := make([]health.QueueInfo, 0, 8)
		for i := 0; i < 8; i++ {
			q := queue.NewBounded[int](string(rune('a'+i)), 1, queue.DropOldest)
			q.Push(1)
			queues = append(queues, q)
		}

		snap := observe(newMonitor(queues...))
		Expect(snap.Recent).To(HaveLen(5))
	})
})
