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

// Package worker implements the shared lifecycle skeleton every
// pipeline stage runs on. A Worker owns a state machine and a Runner;
// the Runner supplies the per-iteration work, the Worker supplies
// panic isolation, error policy and the bounded drain protocol.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/constants"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/sentry"
)

// Runner supplies a worker's domain logic.
type Runner interface {
	// Iterate performs one consume/process cycle. It must bound its
	// own blocking (timed pops, collaborator timeouts) so the worker
	// can observe shutdown between iterations.
	Iterate(ctx context.Context) error

	// Drain consumes the remaining backlog without initiating new
	// retries. It returns when the backlog is empty or ctx expires.
	Drain(ctx context.Context) error
}

// Worker wraps a Runner with the starting/running/draining/stopped
// state machine. No error or panic inside one iteration can escape
// into another worker; a critical worker converts unrecoverable faults
// into the failed state, a non-critical one logs and continues.
type Worker struct {
	id       string
	critical bool
	runner   Runner
	machine  *fsm.FSM
	logger   *zap.SugaredLogger

	mu          sync.RWMutex
	lastErr     error
	lastErrTime time.Time
}

// New creates a worker in the starting state.
func New(id string, critical bool, runner Runner) *Worker {
	w := &Worker{
		id:       id,
		critical: critical,
		runner:   runner,
		logger:   logger.For(logger.ComponentWorker).Named(id),
	}

	w.machine = fsm.NewFSM(
		StateStarting,
		fsm.Events{
			{Name: EventStarted, Src: []string{StateStarting}, Dst: StateRunning},
			{Name: EventDrain, Src: []string{StateStarting, StateRunning}, Dst: StateDraining},
			{Name: EventDrained, Src: []string{StateDraining}, Dst: StateStopped},
			{Name: EventFail, Src: []string{StateStarting, StateRunning, StateDraining}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				w.logger.Debugf("Worker %s: %s -> %s", w.id, e.Src, e.Dst)
				metrics.UpdateWorkerState(w.id, e.Dst)
			},
		},
	)

	metrics.UpdateWorkerState(id, StateStarting)
	metrics.InitErrorCounter(id, "worker")

	return w
}

// ID returns the worker's identifier.
func (w *Worker) ID() string {
	return w.id
}

// Critical reports whether a fault in this worker is an ERROR-level
// condition for the health monitor.
func (w *Worker) Critical() bool {
	return w.critical
}

// State returns the current lifecycle state.
func (w *Worker) State() string {
	return w.machine.Current()
}

// LastError returns the most recent iteration error and when it happened.
func (w *Worker) LastError() (error, time.Time) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.lastErr, w.lastErrTime
}

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.lastErrTime = time.Now()
	w.mu.Unlock()
}

// event fires a state machine event; invalid transitions only happen
// on programming errors, so they are logged, never propagated.
func (w *Worker) event(name string) {
	if err := w.machine.Event(context.Background(), name); err != nil {
		w.logger.Warnf("Worker %s: invalid transition %s from %s: %v", w.id, name, w.machine.Current(), err)
	}
}

// Run executes the worker loop until ctx is cancelled, then drains
// within drainTimeout and stops. Returns the fault for a failed
// critical worker, nil otherwise.
func (w *Worker) Run(ctx context.Context, drainTimeout time.Duration) error {
	for ctx.Err() == nil {
		err := w.safeIterate(ctx)
		if err == nil {
			if w.machine.Current() == StateStarting {
				w.event(EventStarted)
			}

			continue
		}

		if ctx.Err() != nil {
			break
		}

		w.setLastError(err)
		metrics.IncErrorCountAndLog(w.id, "worker", err, w.logger)

		if backoff.IsPermanentError(err) && w.critical {
			w.event(EventFail)
			sentry.ReportWorkerFailure(w.logger, w.id, err)

			return fmt.Errorf("critical worker %s failed: %w", w.id, err)
		}

		// Degraded-continue: the fault cost this iteration only. The
		// pause keeps an instantly failing collaborator from spinning
		// the loop hot.
		w.logger.Warnf("Worker %s iteration failed: %v", w.id, err)

		select {
		case <-ctx.Done():
		case <-time.After(constants.WorkerFailurePause):
		}
	}

	w.event(EventDrain)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := w.safeDrain(drainCtx); err != nil {
		w.logger.Warnf("Worker %s drain incomplete: %v", w.id, err)
	}

	w.event(EventDrained)

	return nil
}

// safeIterate runs one iteration with panic isolation. A panic in a
// critical worker is an unrecoverable fault; in a non-critical worker
// it degrades to a logged error.
func (w *Worker) safeIterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if w.critical {
				err = backoff.NewPermanentError(fmt.Errorf("panic in worker %s: %v", w.id, r))
			} else {
				err = fmt.Errorf("panic in worker %s: %v", w.id, r)
			}
		}
	}()

	return w.runner.Iterate(ctx)
}

func (w *Worker) safeDrain(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while draining worker %s: %v", w.id, r)
		}
	}()

	return w.runner.Drain(ctx)
}
