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

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sunchaser-solar/telemetry-core/pkg/constants"
	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// DefaultConfigPath is where the coordinator looks for its config file.
const DefaultConfigPath = "/data/telemetry.yaml"

// AgentConfig holds the process-level settings.
type AgentConfig struct {
	// MetricsPort is the port of the prometheus /metrics endpoint.
	MetricsPort int `yaml:"metricsPort"`
	// StatusPort is the port of the HTTP status API.
	StatusPort int `yaml:"statusPort"`
	// SentryDSN enables error-event reporting when non-empty.
	SentryDSN string `yaml:"sentryDsn,omitempty"`
	// SimulateBus runs the pipeline against the simulated bus source
	// when no bus hardware is present.
	SimulateBus bool `yaml:"simulateBus"`
}

// PipelineConfig holds the critical-path timing. All intervals are
// milliseconds, matching the data-format documentation.
type PipelineConfig struct {
	FramePeriodMs       int `yaml:"framePeriodMs"`
	IngestBudgetMs      int `yaml:"ingestBudgetMs"`
	FixTimeoutMs        int `yaml:"fixTimeoutMs"`
	LapBudgetMs         int `yaml:"lapBudgetMs"`
	BusReceiveTimeoutMs int `yaml:"busReceiveTimeoutMs"`
	MainQueueCapacity   int `yaml:"mainQueueCapacity"`
	GracePeriodMs       int `yaml:"gracePeriodMs"`
}

// RetryConfig bounds the exponential backoff of the network sinks.
type RetryConfig struct {
	BaseIntervalMs int `yaml:"baseIntervalMs"`
	MaxIntervalMs  int `yaml:"maxIntervalMs"`
	MaxRetries     int `yaml:"maxRetries"`
}

// StorageConfig controls the batch storage sink.
type StorageConfig struct {
	QueueCapacity      int `yaml:"queueCapacity"`
	FlushIntervalMs    int `yaml:"flushIntervalMs"`
	SizeThreshold      int `yaml:"sizeThreshold"`
	MaxBufferedBatches int `yaml:"maxBufferedBatches"`
}

// InferenceConfig controls the bulk-accumulation sink.
type InferenceConfig struct {
	QueueCapacity int `yaml:"queueCapacity"`
	Threshold     int `yaml:"threshold"`
}

// BusEchoConfig controls the bus echo sink.
type BusEchoConfig struct {
	QueueCapacity   int    `yaml:"queueCapacity"`
	LapFrameID      uint32 `yaml:"lapFrameId"`
	DurationFrameID uint32 `yaml:"durationFrameId"`
}

// PresentationConfig controls the driver display sink.
type PresentationConfig struct {
	IntervalMs int `yaml:"intervalMs"`
}

// SinksConfig groups all sink settings.
type SinksConfig struct {
	CloudQueueCapacity int                `yaml:"cloudQueueCapacity"`
	RadioQueueCapacity int                `yaml:"radioQueueCapacity"`
	Retry              RetryConfig        `yaml:"retry"`
	Storage            StorageConfig      `yaml:"storage"`
	Inference          InferenceConfig    `yaml:"inference"`
	BusEcho            BusEchoConfig      `yaml:"busEcho"`
	Presentation       PresentationConfig `yaml:"presentation"`
}

// HealthConfig controls the passive health monitor.
type HealthConfig struct {
	SampleIntervalMs int `yaml:"sampleIntervalMs"`
	StatsIntervalMs  int `yaml:"statsIntervalMs"`
}

// EndpointsConfig names the devices and services the coordinator talks
// to. The bus addresses point at the CAN gateway's UDP bridge.
type EndpointsConfig struct {
	BusListenAddr  string `yaml:"busListenAddr"`
	BusPublishAddr string `yaml:"busPublishAddr"`
	GPSDAddr       string `yaml:"gpsdAddr"`
	CloudURL       string `yaml:"cloudUrl"`
	CloudTimeoutMs int    `yaml:"cloudTimeoutMs"`
	RadioAddr      string `yaml:"radioAddr"`
	DisplayAddr    string `yaml:"displayAddr"`
	StoragePath    string `yaml:"storagePath"`
}

// WaypointConfig is one track centerline point.
type WaypointConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// TrackConfig describes the circuit for the lap timing engine. The
// first waypoint is the start/finish gate.
type TrackConfig struct {
	GateRadiusM float64          `yaml:"gateRadiusM"`
	Waypoints   []WaypointConfig `yaml:"waypoints"`
}

// FullConfig is the complete coordinator configuration.
type FullConfig struct {
	Agent     AgentConfig     `yaml:"agent"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Sinks     SinksConfig     `yaml:"sinks"`
	Health    HealthConfig    `yaml:"health"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	Track     TrackConfig     `yaml:"track"`
	// Layout is the externally versioned placement of the lap fields
	// inside the augmented frame.
	Layout frame.Layout `yaml:"frameLayout"`
}

// DefaultConfig returns the configuration the coordinator runs with
// when no config file exists yet.
func DefaultConfig() FullConfig {
	return FullConfig{
		Agent: AgentConfig{
			MetricsPort: 8080,
			StatusPort:  8081,
		},
		Pipeline: PipelineConfig{
			FramePeriodMs:       int(constants.DefaultFramePeriod / time.Millisecond),
			IngestBudgetMs:      int(constants.DefaultIngestBudget / time.Millisecond),
			FixTimeoutMs:        int(constants.DefaultFixTimeout / time.Millisecond),
			LapBudgetMs:         int(constants.DefaultLapBudget / time.Millisecond),
			BusReceiveTimeoutMs: int(constants.DefaultBusReceiveTimeout / time.Millisecond),
			MainQueueCapacity:   constants.DefaultMainQueueCapacity,
			GracePeriodMs:       int(constants.DefaultGracePeriod / time.Millisecond),
		},
		Sinks: SinksConfig{
			CloudQueueCapacity: constants.DefaultNetworkQueueCapacity,
			RadioQueueCapacity: constants.DefaultNetworkQueueCapacity,
			Retry: RetryConfig{
				BaseIntervalMs: int(constants.DefaultRetryBaseInterval / time.Millisecond),
				MaxIntervalMs:  int(constants.DefaultRetryMaxInterval / time.Millisecond),
				MaxRetries:     constants.DefaultMaxRetries,
			},
			Storage: StorageConfig{
				QueueCapacity:      constants.DefaultStorageQueueCapacity,
				FlushIntervalMs:    int(constants.DefaultBatchFlushInterval / time.Millisecond),
				SizeThreshold:      constants.DefaultBatchSizeThreshold,
				MaxBufferedBatches: constants.DefaultMaxBufferedBatches,
			},
			Inference: InferenceConfig{
				QueueCapacity: constants.DefaultInferenceQueueCapacity,
				Threshold:     constants.DefaultInferenceThreshold,
			},
			BusEcho: BusEchoConfig{
				QueueCapacity:   constants.DefaultBusEchoQueueCapacity,
				LapFrameID:      constants.DefaultLapFrameID,
				DurationFrameID: constants.DefaultDurationFrameID,
			},
			Presentation: PresentationConfig{
				IntervalMs: int(constants.DefaultPresentationInterval / time.Millisecond),
			},
		},
		Health: HealthConfig{
			SampleIntervalMs: int(constants.DefaultSampleInterval / time.Millisecond),
			StatsIntervalMs:  int(constants.DefaultStatsInterval / time.Millisecond),
		},
		Endpoints: EndpointsConfig{
			BusListenAddr:  ":7200",
			BusPublishAddr: "127.0.0.1:7201",
			GPSDAddr:       "127.0.0.1:2947",
			CloudURL:       "https://telemetry.sunchaser.example/ingest",
			CloudTimeoutMs: 5000,
			RadioAddr:      "127.0.0.1:7300",
			DisplayAddr:    "127.0.0.1:7400",
			StoragePath:    "/data/telemetry.csv",
		},
		Track: TrackConfig{
			GateRadiusM: 25,
		},
		Layout: frame.DefaultLayout(),
	}
}

// CloudTimeout returns the cloud request timeout as a duration.
func (e EndpointsConfig) CloudTimeout() time.Duration {
	return time.Duration(e.CloudTimeoutMs) * time.Millisecond
}

// Validate rejects configurations the pipeline cannot run with.
func (c FullConfig) Validate() error {
	if c.Pipeline.FramePeriodMs <= 0 {
		return fmt.Errorf("pipeline.framePeriodMs must be positive")
	}

	if c.Pipeline.IngestBudgetMs <= 0 || c.Pipeline.IngestBudgetMs > c.Pipeline.FramePeriodMs {
		return fmt.Errorf("pipeline.ingestBudgetMs must be positive and below the frame period")
	}

	if c.Pipeline.MainQueueCapacity < 1 {
		return fmt.Errorf("pipeline.mainQueueCapacity must be at least 1")
	}

	if c.Sinks.Retry.MaxRetries < 0 {
		return fmt.Errorf("sinks.retry.maxRetries must not be negative")
	}

	if c.Sinks.Storage.SizeThreshold < 1 || c.Sinks.Storage.MaxBufferedBatches < 1 {
		return fmt.Errorf("sinks.storage thresholds must be at least 1")
	}

	if c.Sinks.Inference.Threshold < 1 {
		return fmt.Errorf("sinks.inference.threshold must be at least 1")
	}

	// The section index is a uint8 on the wire.
	if len(c.Track.Waypoints) > 256 {
		return fmt.Errorf("track.waypoints must not exceed 256 entries")
	}

	return c.Layout.Validate()
}

// Clone returns a deep copy via a yaml round trip, so callers can hand
// out configs without sharing mutable state.
func (c FullConfig) Clone() FullConfig {
	data, err := yaml.Marshal(c)
	if err != nil {
		return c
	}

	var clone FullConfig
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return c
	}

	return clone
}

// Duration helpers, so the rest of the code never multiplies
// milliseconds by hand.

func (p PipelineConfig) FramePeriod() time.Duration {
	return time.Duration(p.FramePeriodMs) * time.Millisecond
}

func (p PipelineConfig) IngestBudget() time.Duration {
	return time.Duration(p.IngestBudgetMs) * time.Millisecond
}

func (p PipelineConfig) FixTimeout() time.Duration {
	return time.Duration(p.FixTimeoutMs) * time.Millisecond
}

func (p PipelineConfig) LapBudget() time.Duration {
	return time.Duration(p.LapBudgetMs) * time.Millisecond
}

func (p PipelineConfig) BusReceiveTimeout() time.Duration {
	return time.Duration(p.BusReceiveTimeoutMs) * time.Millisecond
}

func (p PipelineConfig) GracePeriod() time.Duration {
	return time.Duration(p.GracePeriodMs) * time.Millisecond
}

func (r RetryConfig) BaseInterval() time.Duration {
	return time.Duration(r.BaseIntervalMs) * time.Millisecond
}

func (r RetryConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxIntervalMs) * time.Millisecond
}

func (s StorageConfig) FlushInterval() time.Duration {
	return time.Duration(s.FlushIntervalMs) * time.Millisecond
}

func (p PresentationConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

func (h HealthConfig) SampleInterval() time.Duration {
	return time.Duration(h.SampleIntervalMs) * time.Millisecond
}

func (h HealthConfig) StatsInterval() time.Duration {
	return time.Duration(h.StatsIntervalMs) * time.Millisecond
}
