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

package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/constants"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/monitor"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

// QueueInfo is the read-only queue view the monitor observes. Every
// bounded queue satisfies it regardless of element type.
type QueueInfo interface {
	Name() string
	Depth() int
	Capacity() int
}

// Options configure the monitor's cadence and rate expectations.
type Options struct {
	// SampleInterval is the fine tick: queues, workers, rate.
	SampleInterval time.Duration
	// StatsInterval is the coarse tick: system sampling and the
	// periodic INFO summary.
	StatsInterval time.Duration
	// ExpectedRateHz is the nominal frame rate; the rate alert fires
	// below half of it once the pipeline has settled.
	ExpectedRateHz float64
	// FramePeriod bounds data staleness: no frame for two periods
	// marks the feed stale.
	FramePeriod time.Duration
	// LatencyBudget is the ingest cycle budget; a rolling average
	// above it raises a warning.
	LatencyBudget time.Duration
}

// Monitor is the passive observer worker. It reads worker states, queue
// depths and pipeline stats on a fine tick and host metrics on a coarse
// tick, classifies what it sees and publishes the snapshot. It never
// restarts, clears or throttles anything.
type Monitor struct {
	opts     Options
	registry *worker.Registry
	queues   []QueueInfo
	stats    *PipelineStats
	sampler  monitor.Sampler
	manager  *SnapshotManager
	logger   *zap.SugaredLogger

	rate       rateTracker
	startedAt  time.Time
	nextFine   time.Time
	nextCoarse time.Time
	system     monitor.SystemMetrics
	prevAlerts map[string]struct{}
	recent     []Event
}

func NewMonitor(opts Options, registry *worker.Registry, queues []QueueInfo, stats *PipelineStats, sampler monitor.Sampler, manager *SnapshotManager) *Monitor {
	now := time.Now()

	return &Monitor{
		opts:       opts,
		registry:   registry,
		queues:     queues,
		stats:      stats,
		sampler:    sampler,
		manager:    manager,
		logger:     logger.For(logger.ComponentHealthMonitor),
		startedAt:  now,
		nextFine:   now.Add(opts.SampleInterval),
		nextCoarse: now.Add(opts.StatsInterval),
		prevAlerts: map[string]struct{}{},
	}
}

var _ worker.Runner = (*Monitor)(nil)

// Iterate waits for the next fine tick and publishes one snapshot.
func (m *Monitor) Iterate(ctx context.Context) error {
	if !m.sleepUntil(ctx, m.nextFine) {
		return nil
	}

	m.nextFine = m.nextFine.Add(m.opts.SampleInterval)

	now := time.Now()
	if now.After(m.nextCoarse) {
		m.nextCoarse = m.nextCoarse.Add(m.opts.StatsInterval)
		m.coarseTick(ctx)
	}

	m.manager.Update(m.observe(now))

	return nil
}

// coarseTick refreshes host metrics and logs the periodic summary.
func (m *Monitor) coarseTick(ctx context.Context) {
	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		m.logger.Debugf("System sample failed: %v", err)
	} else {
		m.system = sample
	}

	snap := m.manager.Snapshot()
	m.logger.Infof("Pipeline: %s, %.1f Hz, %d frames total, cpu %.0f%%, mem %.0f%%",
		snap.Status, snap.MessageRateHz, m.stats.Frames(), m.system.CPUPercent, m.system.MemUsedPercent)
}

// observe builds and classifies one snapshot.
func (m *Monitor) observe(now time.Time) Snapshot {
	snap := Snapshot{
		Taken:  now,
		Status: StatusOK,
		System: m.system,
	}

	var alerts []Alert

	for _, info := range m.registry.Snapshot() {
		snap.Workers = append(snap.Workers, WorkerStat(info))

		if info.State == worker.StateStarting || info.State == worker.StateRunning {
			continue
		}

		if info.Critical || info.State == worker.StateFailed {
			alerts = append(alerts, Alert{
				Severity: SeverityError,
				Source:   info.ID,
				Message:  fmt.Sprintf("worker %s is %s", info.ID, info.State),
			})
		}
	}

	for _, q := range m.queues {
		depth, capacity := q.Depth(), q.Capacity()
		metrics.SetQueueDepth(q.Name(), depth, capacity)

		ratio := 0.0
		if capacity > 0 {
			ratio = float64(depth) / float64(capacity)
		}

		snap.Queues = append(snap.Queues, QueueStat{Name: q.Name(), Depth: depth, Capacity: capacity, Ratio: ratio})

		if ratio >= constants.QueueWarningRatio {
			alerts = append(alerts, Alert{
				Severity: SeverityWarning,
				Source:   q.Name(),
				Message:  fmt.Sprintf("queue %s at %d%% of capacity", q.Name(), int(ratio*100)),
			})
		}
	}

	snap.MessageRateHz = m.rate.observe(m.stats.Frames(), now)
	metrics.SetMessageRate(snap.MessageRateHz)

	settled := now.Sub(m.startedAt) >= constants.RateSettleTime
	if settled && snap.MessageRateHz < m.opts.ExpectedRateHz*constants.RateWarningFraction {
		alerts = append(alerts, Alert{
			Severity: SeverityWarning,
			Source:   "ingest",
			Message:  fmt.Sprintf("frame rate %.1f Hz below expected %.1f Hz", snap.MessageRateHz, m.opts.ExpectedRateHz),
		})
	}

	lastAt := m.stats.LastFrameAt()
	if settled && (lastAt.IsZero() || now.Sub(lastAt) > 2*m.opts.FramePeriod) {
		snap.DataStale = true
		alerts = append(alerts, Alert{
			Severity: SeverityWarning,
			Source:   "ingest",
			Message:  "no frame received within two frame periods",
		})
	}

	snap.FixStale = m.stats.FixStale()
	snap.Latency = m.stats.Latency()

	if budget := m.opts.LatencyBudget; budget > 0 && snap.Latency.AvgMs > float64(budget.Milliseconds()) {
		alerts = append(alerts, Alert{
			Severity: SeverityWarning,
			Source:   "ingest",
			Message:  fmt.Sprintf("ingest latency %.1f ms over the %d ms budget", snap.Latency.AvgMs, budget.Milliseconds()),
		})
	}

	snap.Alerts = alerts
	snap.Status = overallStatus(alerts)
	snap.Recent = m.recordEvents(alerts, now)

	return snap
}

// recordEvents appends newly raised alerts to the bounded recent ring.
func (m *Monitor) recordEvents(alerts []Alert, now time.Time) []Event {
	current := make(map[string]struct{}, len(alerts))

	for _, a := range alerts {
		key := a.Source + "/" + a.Message
		current[key] = struct{}{}

		if _, seen := m.prevAlerts[key]; seen {
			continue
		}

		m.recent = append(m.recent, Event{Severity: a.Severity, Message: a.Message, At: now})
		if len(m.recent) > constants.RecentEventsKept {
			m.recent = m.recent[len(m.recent)-constants.RecentEventsKept:]
		}

		if a.Severity == SeverityError {
			m.logger.Errorf("Health: %s", a.Message)
		} else {
			m.logger.Warnf("Health: %s", a.Message)
		}
	}

	m.prevAlerts = current

	out := make([]Event, len(m.recent))
	copy(out, m.recent)

	return out
}

func overallStatus(alerts []Alert) string {
	status := StatusOK

	for _, a := range alerts {
		if a.Severity == SeverityError {
			return StatusError
		}

		status = StatusWarning
	}

	return status
}

// Drain has nothing to flush; the last published snapshot stays
// available to the status API during shutdown.
func (m *Monitor) Drain(_ context.Context) error {
	return nil
}

func (m *Monitor) sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
