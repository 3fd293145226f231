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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/config"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
)

var _ = Describe("DefaultConfig", func() {
	It("validates", func() {
		Expect(config.DefaultConfig().Validate()).To(Succeed())
	})

	It("carries the race cadence", func() {
		cfg := config.DefaultConfig()

		Expect(cfg.Pipeline.FramePeriod()).To(Equal(333 * time.Millisecond))
		Expect(cfg.Pipeline.IngestBudget()).To(Equal(50 * time.Millisecond))
		Expect(cfg.Pipeline.MainQueueCapacity).To(Equal(100))
		Expect(cfg.Sinks.Storage.QueueCapacity).To(Equal(500))
		Expect(cfg.Sinks.Inference.Threshold).To(Equal(1000))
		Expect(cfg.Sinks.BusEcho.LapFrameID).To(Equal(uint32(0x400)))
		Expect(cfg.Sinks.BusEcho.DurationFrameID).To(Equal(uint32(0x401)))
	})
})

var _ = Describe("Validate", func() {
	It("rejects an ingest budget above the frame period", func() {
		cfg := config.DefaultConfig()
		cfg.Pipeline.IngestBudgetMs = cfg.Pipeline.FramePeriodMs + 1

		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("rejects a zero main queue capacity", func() {
		cfg := config.DefaultConfig()
		cfg.Pipeline.MainQueueCapacity = 0

		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("rejects a track with more waypoints than section indices", func() {
		cfg := config.DefaultConfig()
		cfg.Track.Waypoints = make([]config.WaypointConfig, 257)

		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("rejects a broken frame layout", func() {
		cfg := config.DefaultConfig()
		cfg.Layout.Version = ""

		Expect(cfg.Validate()).NotTo(Succeed())
	})
})

var _ = Describe("FileConfigManager", func() {
	var (
		ctx  context.Context
		path string
	)

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "telemetry.yaml")
	})

	It("fails when the file does not exist", func() {
		manager := config.NewFileConfigManager(path)

		_, err := manager.GetConfig(ctx)
		Expect(err).To(HaveOccurred())
	})

	It("creates and reloads the default config", func() {
		manager := config.NewFileConfigManager(path)

		created, err := manager.GetConfigOrCreateNew(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(created.Validate()).To(Succeed())

		Expect(path).To(BeAnExistingFile())

		loaded, err := manager.GetConfig(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(created))
	})

	It("layers file values over the defaults", func() {
		Expect(os.WriteFile(path, []byte("pipeline:\n  mainQueueCapacity: 42\n"), 0o644)).To(Succeed())

		manager := config.NewFileConfigManager(path)

		cfg, err := manager.GetConfig(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Pipeline.MainQueueCapacity).To(Equal(42))
		// Untouched sections keep their defaults.
		Expect(cfg.Pipeline.FramePeriod()).To(Equal(333 * time.Millisecond))
	})

	It("rejects an invalid file", func() {
		Expect(os.WriteFile(path, []byte("pipeline:\n  framePeriodMs: -5\n"), 0o644)).To(Succeed())

		manager := config.NewFileConfigManager(path)

		_, err := manager.GetConfig(ctx)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadConfigWithEnvOverrides", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "telemetry.yaml")
	})

	It("applies environment overrides without persisting them", func() {
		GinkgoT().Setenv("METRICS_PORT", "9999")
		GinkgoT().Setenv("SIMULATE_BUS", "true")

		manager := config.NewFileConfigManagerWithBackoff(path)

		cfg, err := config.LoadConfigWithEnvOverrides(context.Background(), manager, logger.For("test"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Agent.MetricsPort).To(Equal(9999))
		Expect(cfg.Agent.SimulateBus).To(BeTrue())

		// The file on disk keeps the defaults.
		reloaded, err := config.NewFileConfigManager(path).GetConfig(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(reloaded.Agent.MetricsPort).To(Equal(8080))
		Expect(reloaded.Agent.SimulateBus).To(BeFalse())
	})

	It("ignores malformed override values", func() {
		GinkgoT().Setenv("SIMULATE_BUS", "sideways")

		manager := config.NewFileConfigManagerWithBackoff(path)

		cfg, err := config.LoadConfigWithEnvOverrides(context.Background(), manager, logger.For("test"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Agent.SimulateBus).To(BeFalse())
	})
})

var _ = Describe("Clone", func() {
	It("returns an independent copy", func() {
		cfg := config.DefaultConfig()
		clone := cfg.Clone()

		clone.Pipeline.MainQueueCapacity = 7
		Expect(cfg.Pipeline.MainQueueCapacity).To(Equal(100))
	})
})
