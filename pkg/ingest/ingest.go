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

// Package ingest runs the critical path: receive a raw frame, attach
// the position fix and lap state, seal the augmented frame and hand it
// to the main queue. Every collaborator call is individually bounded so
// one cycle can never exceed its latency budget by more than a single
// timeout.
package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/ctxutil"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/bus"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/laptimer"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/position"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

// FrameQueue is the main queue the loop produces into.
type FrameQueue = queue.Bounded[*frame.AugmentedFrame]

// Options bound each stage of the cycle.
type Options struct {
	// BusReceiveTimeout bounds the wait for the next raw frame.
	BusReceiveTimeout time.Duration
	// FixTimeout bounds the position query before the cached fix is
	// used instead.
	FixTimeout time.Duration
	// LapBudget bounds the lap engine update before the previous lap
	// state is carried forward.
	LapBudget time.Duration
	// CycleBudget is the latency target for a full cycle. Collaborator
	// calls that no longer fit inside it are skipped in favor of cached
	// state; going over it is logged, not fatal.
	CycleBudget time.Duration
	// Layout places the lap fields in the augmented frame.
	Layout frame.Layout
}

// Stats receives one callback per completed cycle, plus the staleness
// of the fix that went into it.
type Stats interface {
	RecordFrame(latency time.Duration)
	NoteFix(stale bool)
}

var _ worker.Runner = (*Loop)(nil)

// Loop is the ingest worker. It is the pipeline's only critical
// worker: a fault here means no telemetry at all, so unrecoverable
// faults surface as worker failure instead of silent degradation.
type Loop struct {
	opts     Options
	source   bus.Source
	position *position.CachedProvider
	lap      laptimer.Engine
	main     *FrameQueue
	stats    Stats
	logger   *zap.SugaredLogger

	prevLap frame.LapState
}

func NewLoop(opts Options, source bus.Source, pos *position.CachedProvider, lap laptimer.Engine, main *FrameQueue, stats Stats) *Loop {
	return &Loop{
		opts:     opts,
		source:   source,
		position: pos,
		lap:      lap,
		main:     main,
		stats:    stats,
		logger:   logger.For(logger.ComponentIngest),
	}
}

// Iterate runs one ingest cycle. A quiet bus window is a no-op, not an
// error.
func (l *Loop) Iterate(ctx context.Context) error {
	raw, err := l.source.Receive(ctx, l.opts.BusReceiveTimeout)
	if err != nil {
		if errors.Is(err, bus.ErrNoFrame) || errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	start := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, l.opts.CycleBudget)
	defer cancel()

	fix := l.position.Fix(cycleCtx, l.opts.FixTimeout)
	if l.stats != nil {
		l.stats.NoteFix(fix.Stale)
	}

	lap := l.lapState(cycleCtx, fix)

	f := frame.Augment(raw, lap, fix, l.opts.Layout)

	if dropped := l.main.Push(f); dropped {
		metrics.IncFramesDropped(l.main.Name())
		l.logger.Warnf("Main queue full, shed oldest frame for %s", f.ID())
	}

	elapsed := time.Since(start)
	metrics.ObserveIngestCycleTime(elapsed)
	metrics.IncFramesIngested()

	if l.stats != nil {
		l.stats.RecordFrame(elapsed)
	}

	if over, exceeded := ctxutil.BudgetExceeded(elapsed, l.opts.CycleBudget); exceeded {
		l.logger.Warnf("Ingest cycle over budget by %s", over)
	}

	return nil
}

// lapState queries the lap engine under its budget. The engine is not
// consulted at all when the cycle budget cannot fit a full lap query
// anymore. On any failure the previous state carries forward, and a
// regressing lap count from the engine is rejected the same way.
func (l *Loop) lapState(ctx context.Context, fix frame.PositionFix) frame.LapState {
	if _, sufficient, err := ctxutil.HasSufficientTime(ctx, l.opts.LapBudget); err == nil && !sufficient {
		l.logger.Debugf("Cycle budget exhausted, carrying previous lap state")

		return l.prevLap
	}

	lapCtx, cancel := context.WithTimeout(ctx, l.opts.LapBudget)
	defer cancel()

	state, err := l.lap.Update(lapCtx, fix)
	if err != nil {
		l.logger.Debugf("Lap engine unavailable, carrying previous state: %v", err)

		return l.prevLap
	}

	l.prevLap = state.MonotonicFrom(l.prevLap)

	return l.prevLap
}

// Drain stops producing; frames already in the main queue belong to
// the dispatcher now.
func (l *Loop) Drain(_ context.Context) error {
	return nil
}
