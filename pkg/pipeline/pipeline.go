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

// Package pipeline assembles the queues and workers from configuration
// and supervises them. Shutdown is staged: the ingest loop stops
// producing first, the dispatcher then empties the main queue, and the
// sinks drain last, each stage bounded by the grace period.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/config"
	"github.com/sunchaser-solar/telemetry-core/pkg/constants"
	"github.com/sunchaser-solar/telemetry-core/pkg/dispatch"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/health"
	"github.com/sunchaser-solar/telemetry-core/pkg/ingest"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/bus"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/inference"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/laptimer"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/monitor"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/position"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/presentation"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/storage"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/transmitter"
	"github.com/sunchaser-solar/telemetry-core/pkg/sink"
	"github.com/sunchaser-solar/telemetry-core/pkg/worker"
)

// FrameQueue is the queue type frames move through.
type FrameQueue = queue.Bounded[*frame.AugmentedFrame]

// Collaborators are the externally provided devices and services the
// pipeline talks to. Tests substitute mocks here.
type Collaborators struct {
	Source          bus.Source
	Publisher       bus.Publisher
	Position        position.Provider
	LapEngine       laptimer.Engine
	CloudTx         transmitter.Transmitter
	RadioTx         transmitter.Transmitter
	StorageWriter   storage.Writer
	InferenceEngine inference.Engine
	Display         presentation.Publisher
	Sampler         monitor.Sampler
}

// stage groups workers that stop together.
type stage struct {
	name    string
	workers []*worker.Worker
}

// Pipeline owns the queues and workers of one telemetry run.
type Pipeline struct {
	cfg       config.FullConfig
	registry  *worker.Registry
	snapshots *health.SnapshotManager
	stats     *health.PipelineStats
	stages    []stage
	queues    []health.QueueInfo
	logger    *zap.SugaredLogger
}

// New assembles the pipeline. The returned pipeline has not started
// any goroutine yet.
func New(cfg config.FullConfig, collab Collaborators) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		registry:  worker.NewRegistry(),
		snapshots: health.NewSnapshotManager(),
		stats:     health.NewPipelineStats(constants.LatencyWindow),
		logger:    logger.For(logger.ComponentPipeline),
	}

	mainQueue := queue.NewBounded[*frame.AugmentedFrame]("main", cfg.Pipeline.MainQueueCapacity, queue.DropOldest)

	ingestLoop := ingest.NewLoop(ingest.Options{
		BusReceiveTimeout: cfg.Pipeline.BusReceiveTimeout(),
		FixTimeout:        cfg.Pipeline.FixTimeout(),
		LapBudget:         cfg.Pipeline.LapBudget(),
		CycleBudget:       cfg.Pipeline.IngestBudget(),
		Layout:            cfg.Layout,
	}, collab.Source, position.NewCachedProvider(collab.Position), collab.LapEngine, mainQueue, p.stats)

	dispatcher := dispatch.NewDispatcher(mainQueue, constants.DefaultPopTimeout)

	sinks := cfg.Sinks
	retry := func() *backoff.RetryPolicy {
		return backoff.NewRetryPolicy(sinks.Retry.BaseInterval(), sinks.Retry.MaxInterval(), sinks.Retry.MaxRetries)
	}

	cloudQueue := queue.NewBounded[*frame.AugmentedFrame]("cloud", sinks.CloudQueueCapacity, queue.DropOldest)
	radioQueue := queue.NewBounded[*frame.AugmentedFrame]("radio", sinks.RadioQueueCapacity, queue.DropOldest)
	echoQueue := queue.NewBounded[*frame.AugmentedFrame]("bus_echo", sinks.BusEcho.QueueCapacity, queue.DropOldest)
	storageQueue := queue.NewBounded[*frame.AugmentedFrame]("storage", sinks.Storage.QueueCapacity, queue.DropOldest)
	inferQueue := queue.NewBounded[*frame.AugmentedFrame]("inference", sinks.Inference.QueueCapacity, queue.DropOldest)
	displayQueue := queue.NewBounded[*frame.AugmentedFrame]("presentation", constants.PresentationQueueCapacity, queue.KeepLatest)

	cloudSink := sink.NewNetworkSink("cloud", cloudQueue, collab.CloudTx, retry(), constants.DefaultPopTimeout, logger.ComponentCloudSink)
	radioSink := sink.NewNetworkSink("radio", radioQueue, collab.RadioTx, retry(), constants.DefaultPopTimeout, logger.ComponentRadioSink)
	echoSink := sink.NewBusEchoSink(echoQueue, collab.Publisher, sinks.BusEcho.LapFrameID, sinks.BusEcho.DurationFrameID, constants.DefaultPopTimeout)
	storageSink := sink.NewStorageSink(storageQueue, collab.StorageWriter, sinks.Storage.FlushInterval(), sinks.Storage.SizeThreshold, sinks.Storage.MaxBufferedBatches, constants.DefaultStoragePopTimeout)
	inferSink := sink.NewInferenceSink(inferQueue, collab.InferenceEngine, sinks.Inference.Threshold, constants.DefaultPopTimeout)
	displaySink := sink.NewPresentationSink(displayQueue, collab.Display, p.snapshots, sinks.Presentation.Interval())

	for _, q := range []*FrameQueue{cloudQueue, radioQueue, echoQueue, storageQueue, inferQueue, displayQueue} {
		dispatcher.Attach(q)
	}

	p.queues = []health.QueueInfo{mainQueue, cloudQueue, radioQueue, echoQueue, storageQueue, inferQueue, displayQueue}

	mon := health.NewMonitor(health.Options{
		SampleInterval: cfg.Health.SampleInterval(),
		StatsInterval:  cfg.Health.StatsInterval(),
		ExpectedRateHz: 1000.0 / float64(cfg.Pipeline.FramePeriodMs),
		FramePeriod:    cfg.Pipeline.FramePeriod(),
		LatencyBudget:  cfg.Pipeline.IngestBudget(),
	}, p.registry, p.queues, p.stats, collab.Sampler, p.snapshots)

	p.stages = []stage{
		{name: "ingest", workers: []*worker.Worker{p.add("ingest", true, ingestLoop)}},
		{name: "dispatch", workers: []*worker.Worker{p.add("dispatcher", true, dispatcher)}},
		{name: "sinks", workers: []*worker.Worker{
			p.add("cloud_sink", false, cloudSink),
			p.add("radio_sink", false, radioSink),
			p.add("bus_echo_sink", false, echoSink),
			p.add("storage_sink", false, storageSink),
			p.add("inference_sink", false, inferSink),
			p.add("presentation_sink", false, displaySink),
			p.add("health_monitor", false, mon),
		}},
	}

	return p
}

func (p *Pipeline) add(id string, critical bool, runner worker.Runner) *worker.Worker {
	w := worker.New(id, critical, runner)
	p.registry.Register(w)

	return w
}

// Health exposes the latest snapshot for the status API.
func (p *Pipeline) Health() health.Provider {
	return p.snapshots
}

// Workers exposes the registry, for tests and the status API.
func (p *Pipeline) Workers() *worker.Registry {
	return p.registry
}

// Run starts every worker and blocks until shutdown completes. It
// returns the first critical worker fault, or nil on a clean stop
// after ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	grace := p.cfg.Pipeline.GracePeriod()

	g, runCtx := errgroup.WithContext(context.Background())

	type runningStage struct {
		cancel context.CancelFunc
		done   chan struct{}
	}

	running := make([]runningStage, len(p.stages))

	for i, st := range p.stages {
		stageCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		running[i] = runningStage{cancel: cancel, done: done}

		workers := st.workers
		stageDone := make([]chan struct{}, len(workers))

		for j, w := range workers {
			w := w
			workerDone := make(chan struct{})
			stageDone[j] = workerDone

			g.Go(func() error {
				defer close(workerDone)

				return w.Run(stageCtx, grace)
			})
		}

		go func(all []chan struct{}, done chan struct{}) {
			for _, ch := range all {
				<-ch
			}
			close(done)
		}(stageDone, done)
	}

	// The sequencer cancels stages front to back so no stage stops
	// while its producer is still running.
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-runCtx.Done():
			// A critical worker failed; unwind the rest.
		}

		p.logger.Info("Pipeline shutting down")

		for i, rs := range running {
			rs.cancel()

			select {
			case <-rs.done:
			case <-time.After(grace + time.Second):
				p.logger.Warnf("Stage %s did not stop within grace period", p.stages[i].name)
			}
		}

		return nil
	})

	err := g.Wait()

	for _, q := range p.queues {
		if b, ok := q.(*FrameQueue); ok {
			if n := b.DiscardAll(); n > 0 {
				p.logger.Infof("Discarded %d undelivered frames from %s", n, b.Name())
			}
		}
	}

	p.logger.Info("Pipeline stopped")

	return err
}
