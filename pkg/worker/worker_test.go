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

package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

// scriptRunner drives a worker from a test script.
type scriptRunner struct {
	iterate func(ctx context.Context) error
	drained atomic.Bool
}

func (r *scriptRunner) Iterate(ctx context.Context) error {
	if r.iterate != nil {
		return r.iterate(ctx)
	}

	time.Sleep(time.Millisecond)

	return nil
}

func (r *scriptRunner) Drain(_ context.Context) error {
	r.drained.Store(true)

	return nil
}

var _ = Describe("Worker", func() {
	var ctx context.Context
	var cancel context.CancelFunc

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)
	})

	It("starts in the starting state", func() {
		w := worker.New("w1", false, &scriptRunner{})

		Expect(w.State()).To(Equal(worker.StateStarting))
	})

	It("enters running after the first successful iteration and stops through draining", func() {
		runner := &scriptRunner{}
		w := worker.New("w2", false, runner)

		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx, time.Second)
		}()

		Eventually(w.State).Should(Equal(worker.StateRunning))

		cancel()

		Eventually(done).Should(Receive(BeNil()))
		Expect(w.State()).To(Equal(worker.StateStopped))
		Expect(runner.drained.Load()).To(BeTrue())
	})

	It("keeps a non-critical worker running through errors and panics", func() {
		var calls atomic.Int64
		runner := &scriptRunner{
			iterate: func(context.Context) error {
				switch calls.Add(1) {
				case 1:
					return errors.New("transient")
				case 2:
					panic("boom")
				default:
					time.Sleep(time.Millisecond)

					return nil
				}
			},
		}

		w := worker.New("w3", false, runner)

		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx, time.Second)
		}()

		Eventually(w.State).Should(Equal(worker.StateRunning))
		Eventually(calls.Load).Should(BeNumerically(">=", 3))

		err, _ := w.LastError()
		Expect(err).To(HaveOccurred())

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("fails a critical worker on a permanent error", func() {
		started := make(chan struct{})
		var once atomic.Bool
		runner := &scriptRunner{
			iterate: func(context.Context) error {
				if once.CompareAndSwap(false, true) {
					return nil
				}

				<-started

				return backoff.NewPermanentError(errors.New("bus gone"))
			},
		}

		w := worker.New("w4", true, runner)

		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx, time.Second)
		}()

		Eventually(w.State).Should(Equal(worker.StateRunning))
		close(started)

		var runErr error
		Eventually(done).Should(Receive(&runErr))
		Expect(runErr).To(HaveOccurred())
		Expect(w.State()).To(Equal(worker.StateFailed))
	})

	It("fails a critical worker on a panic", func() {
		var once atomic.Bool
		runner := &scriptRunner{
			iterate: func(context.Context) error {
				if once.CompareAndSwap(false, true) {
					return nil
				}

				panic("wild pointer")
			},
		}

		w := worker.New("w5", true, runner)

		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx, time.Second)
		}()

		var runErr error
		Eventually(done).Should(Receive(&runErr))
		Expect(runErr).To(HaveOccurred())
		Expect(w.State()).To(Equal(worker.StateFailed))
	})

	It("paces iterations after a failure instead of spinning", func() {
		var calls atomic.Int64
		runner := &scriptRunner{
			iterate: func(context.Context) error {
				calls.Add(1)

				return errors.New("socket closed")
			},
		}

		w := worker.New("w7", false, runner)

		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx, time.Second)
		}()

		time.Sleep(250 * time.Millisecond)
		cancel()
		Eventually(done).Should(Receive(BeNil()))

		Expect(calls.Load()).To(BeNumerically("<=", 5))
	})

	It("treats a transient error in a critical worker as survivable", func() {
		var calls atomic.Int64
		runner := &scriptRunner{
			iterate: func(context.Context) error {
				if calls.Add(1) == 2 {
					return errors.New("blip")
				}

				time.Sleep(time.Millisecond)

				return nil
			},
		}

		w := worker.New("w6", true, runner)

		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx, time.Second)
		}()

		Eventually(calls.Load).Should(BeNumerically(">=", 3))
		Expect(w.State()).To(Equal(worker.StateRunning))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(w.State()).To(Equal(worker.StateStopped))
	})
})

var _ = Describe("Registry", func() {
	It("snapshots workers in registration order", func() {
		reg := worker.NewRegistry()
		reg.Register(worker.New("a", true, &scriptRunner{}))
		reg.Register(worker.New("b", false, &scriptRunner{}))

		infos := reg.Snapshot()
		Expect(infos).To(HaveLen(2))
		Expect(infos[0].ID).To(Equal("a"))
		Expect(infos[0].Critical).To(BeTrue())
		Expect(infos[1].ID).To(Equal("b"))
		Expect(infos[1].State).To(Equal(worker.StateStarting))
	})
})

var _ = Describe("IsTerminal", func() {
	It("marks stopped and failed terminal", func() {
		Expect(worker.IsTerminal(worker.StateStopped)).To(BeTrue())
		Expect(worker.IsTerminal(worker.StateFailed)).To(BeTrue())
		Expect(worker.IsTerminal(worker.StateRunning)).To(BeFalse())
	})
})
