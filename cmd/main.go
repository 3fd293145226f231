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

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/config"
	"github.com/sunchaser-solar/telemetry-core/pkg/health"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
	"github.com/sunchaser-solar/telemetry-core/pkg/pipeline"
	"github.com/sunchaser-solar/telemetry-core/pkg/sentry"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/bus"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/inference"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/laptimer"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/monitor"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/position"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/presentation"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/storage"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/transmitter"
	"github.com/sunchaser-solar/telemetry-core/pkg/version"
)

func main() {
	// Initialize the global logger first thing
	logger.Initialize()

	log := logger.For(logger.ComponentCore)
	log.Infof("Starting telemetry-core %s...", version.GetAppVersion())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configManager := config.NewFileConfigManagerWithBackoff(os.Getenv("CONFIG_PATH"))

	cfg, err := config.LoadConfigWithEnvOverrides(ctx, configManager, log)
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	sentry.InitSentry(cfg.Agent.SentryDSN, version.GetAppVersion())

	metricsServer := metrics.SetupMetricsEndpoint(fmt.Sprintf(":%d", cfg.Agent.MetricsPort))
	defer shutdownServer(metricsServer, log, "metrics")

	collab, closers, err := buildCollaborators(cfg)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Failed to build collaborators: %v", err)
		os.Exit(1)
	}

	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Debugf("Close failed: %v", err)
			}
		}
	}()

	p := pipeline.New(cfg, collab)

	statusServer := setupStatusEndpoint(cfg.Agent.StatusPort, p.Health(), log)
	defer shutdownServer(statusServer, log, "status")

	if err := p.Run(ctx); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Pipeline failed: %v", err)
	}

	_ = logger.Sync()

	log.Info("telemetry-core stopped")
}

// buildCollaborators constructs the device-facing services from
// configuration. In simulation mode the bus and position feeds are
// synthetic; everything downstream runs the real code paths.
func buildCollaborators(cfg config.FullConfig) (pipeline.Collaborators, []io.Closer, error) {
	var closers []io.Closer

	collab := pipeline.Collaborators{
		InferenceEngine: inference.NewEnergyEstimator(),
		Sampler:         monitor.NewSystemSampler(),
	}

	if cfg.Agent.SimulateBus {
		collab.Source = bus.NewSimulatedSource(cfg.Pipeline.FramePeriod())
		collab.Publisher = bus.NewLoggingPublisher()

		sim := position.NewSimulatedProvider(simulatedCenter(cfg.Track))
		collab.Position = sim
	} else {
		source, err := bus.NewUDPSource(cfg.Endpoints.BusListenAddr)
		if err != nil {
			return collab, closers, err
		}

		closers = append(closers, source)
		collab.Source = source

		publisher, err := bus.NewUDPPublisher(cfg.Endpoints.BusPublishAddr)
		if err != nil {
			return collab, closers, err
		}

		closers = append(closers, publisher)
		collab.Publisher = publisher

		gpsd := position.NewGPSDProvider(cfg.Endpoints.GPSDAddr)
		closers = append(closers, gpsd)
		collab.Position = gpsd
	}

	collab.LapEngine = laptimer.NewGeofenceEngine(trackWaypoints(cfg.Track), cfg.Track.GateRadiusM)

	collab.CloudTx = transmitter.NewHTTPTransmitter("cloud", cfg.Endpoints.CloudURL, cfg.Endpoints.CloudTimeout())

	radio, err := transmitter.NewUDPTransmitter("radio", cfg.Endpoints.RadioAddr)
	if err != nil {
		return collab, closers, err
	}

	closers = append(closers, radio)
	collab.RadioTx = radio

	writer, err := storage.NewCSVWriter(cfg.Endpoints.StoragePath)
	if err != nil {
		return collab, closers, err
	}

	closers = append(closers, writer)
	collab.StorageWriter = writer

	display, err := presentation.NewUDPPublisher(cfg.Endpoints.DisplayAddr)
	if err != nil {
		return collab, closers, err
	}

	closers = append(closers, display)
	collab.Display = display

	return collab, closers, nil
}

func trackWaypoints(track config.TrackConfig) []laptimer.Waypoint {
	waypoints := make([]laptimer.Waypoint, 0, len(track.Waypoints))
	for _, wp := range track.Waypoints {
		waypoints = append(waypoints, laptimer.Waypoint{Latitude: wp.Latitude, Longitude: wp.Longitude})
	}

	return waypoints
}

// simulatedCenter places the simulated car on the configured track, or
// on the default test circuit when none is configured.
func simulatedCenter(track config.TrackConfig) (float64, float64) {
	if len(track.Waypoints) > 0 {
		return track.Waypoints[0].Latitude, track.Waypoints[0].Longitude
	}

	return 38.921, -95.677
}

// setupStatusEndpoint serves the passive health snapshot: /healthz for
// probes, /status for the chase vehicle dashboard.
func setupStatusEndpoint(port int, provider health.Provider, log *zap.SugaredLogger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		snap := provider.Snapshot()
		if snap.Status == health.StatusError {
			c.String(http.StatusServiceUnavailable, snap.Status)

			return
		}

		c.String(http.StatusOK, snap.Status)
	})

	router.GET("/status", func(c *gin.Context) {
		data, err := json.Marshal(provider.Snapshot())
		if err != nil {
			c.String(http.StatusInternalServerError, "snapshot encode failed")

			return
		}

		c.Data(http.StatusOK, "application/json", data)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Status server failed: %v", err)
		}
	}()

	return server
}

func shutdownServer(server *http.Server, log *zap.SugaredLogger, name string) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shutdown %s server: %v", name, err)
	}
}
