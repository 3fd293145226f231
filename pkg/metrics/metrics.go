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

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
)

const (
	// Component labels.
	ComponentIngest        = "ingest"
	ComponentDispatcher    = "dispatcher"
	ComponentHealthMonitor = "health_monitor"
	ComponentPipeline      = "pipeline"
	ComponentConfigManager = "config_manager"
	// Sinks.
	ComponentCloudSink        = "cloud_sink"
	ComponentRadioSink        = "radio_sink"
	ComponentBusEchoSink      = "bus_echo_sink"
	ComponentStorageSink      = "storage_sink"
	ComponentInferenceSink    = "inference_sink"
	ComponentPresentationSink = "presentation_sink"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "sunchaser"
	subsystem = "telemetry"

	// Error counters.
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	// Ingest cycle timing.
	ingestCycleTime = promauto.NewSummary(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ingest_cycle_duration_milliseconds",
			Help:      "Time taken for one ingest cycle (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01, // 50th percentile with 1% error
				0.9:  0.01, // 90th percentile with 1% error
				0.95: 0.01, // 95th percentile with 1% error
				0.99: 0.01, // 99th percentile with 1% error
			},
		},
	)

	// Frame accounting.
	framesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_ingested_total",
			Help:      "Total number of frames that completed the ingest critical path",
		},
	)

	framesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped per queue by its overflow policy",
		},
		[]string{"queue"},
	)

	staleFixes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_position_fixes_total",
			Help:      "Total number of ingest cycles that reused a cached position fix",
		},
	)

	// Sink delivery accounting.
	sinkSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_sends_total",
			Help:      "Total number of sink delivery attempts by outcome",
		},
		[]string{"sink", "outcome"},
	)

	sinkRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_retries_total",
			Help:      "Total number of sink delivery retries",
		},
		[]string{"sink"},
	)

	// Queue gauges, sampled by the health monitor.
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Current number of frames buffered in a queue",
		},
		[]string{"queue"},
	)

	queueCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_capacity",
			Help:      "Configured capacity of a queue",
		},
		[]string{"queue"},
	)

	// Worker state metric.
	workerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "worker_state",
			Help:      "Current state of the worker (0=Stopped, 1=Starting, 2=Running, 3=Draining, -2=Failed, -1=Unknown)",
		},
		[]string{"worker"},
	)

	messageRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "message_rate_hz",
			Help:      "Rolling frame rate observed by the health monitor",
		},
	)
)

// SetupMetricsEndpoint starts an HTTP server to expose metrics
// This should be called once at application startup.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.For("metrics").Errorf("Metrics endpoint failed: %v", err)
		}
	}()

	return server
}

// IncErrorCountAndLog increments the error counter for a component and logs a debug message if a logger is provided.
func IncErrorCountAndLog(component, instance string, err error, log *zap.SugaredLogger) {
	IncErrorCount(component, instance)

	if log != nil {
		log.Debugf("Component %s instance %s iteration failed: %v", component, instance, err)
	}
}

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// InitErrorCounter initializes the error counter for a component.
func InitErrorCounter(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Add(0)
}

// ObserveIngestCycleTime records the time taken for one ingest cycle.
func ObserveIngestCycleTime(duration time.Duration) {
	ingestCycleTime.Observe(float64(duration.Milliseconds()))
}

// IncFramesIngested counts one completed ingest cycle.
func IncFramesIngested() {
	framesIngested.Inc()
}

// IncFramesDropped counts one frame discarded by the named queue's overflow policy.
func IncFramesDropped(queue string) {
	framesDropped.WithLabelValues(queue).Inc()
}

// IncStaleFixes counts one ingest cycle that fell back to the cached position fix.
func IncStaleFixes() {
	staleFixes.Inc()
}

// IncSinkSend records a sink delivery attempt outcome ("success", "failure" or "dropped").
func IncSinkSend(sink, outcome string) {
	sinkSends.WithLabelValues(sink, outcome).Inc()
}

// IncSinkRetry records a sink delivery retry.
func IncSinkRetry(sink string) {
	sinkRetries.WithLabelValues(sink).Inc()
}

// SetQueueDepth updates the depth and capacity gauges for a queue.
func SetQueueDepth(queue string, depth, capacity int) {
	queueDepth.WithLabelValues(queue).Set(float64(depth))
	queueCapacity.WithLabelValues(queue).Set(float64(capacity))
}

// SetMessageRate updates the rolling frame rate gauge.
func SetMessageRate(hz float64) {
	messageRate.Set(hz)
}

// UpdateWorkerState updates the state metric for a worker.
func UpdateWorkerState(worker, state string) {
	workerState.WithLabelValues(worker).Set(getStateValue(state))
}

// getStateValue converts a state string to a numeric value for the metric.
func getStateValue(state string) float64 {
	switch state {
	case "stopped":
		return 0
	case "starting":
		return 1
	case "running":
		return 2
	case "draining":
		return 3
	case "failed":
		return -2
	default:
		return -1 // Unknown state
	}
}
