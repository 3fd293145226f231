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

package logger

// Component name constants for standardized logging
const (
	// Core components
	ComponentCore          = "Core"
	ComponentPipeline      = "Pipeline"
	ComponentIngest        = "Ingest"
	ComponentDispatcher    = "Dispatcher"
	ComponentHealthMonitor = "HealthMonitor"

	// Sink workers
	ComponentCloudSink        = "CloudSink"
	ComponentRadioSink        = "RadioSink"
	ComponentBusEchoSink      = "BusEchoSink"
	ComponentStorageSink      = "StorageSink"
	ComponentInferenceSink    = "InferenceSink"
	ComponentPresentationSink = "PresentationSink"

	// Infrastructure
	ComponentWorker        = "Worker"
	ComponentQueue         = "Queue"
	ComponentConfigManager = "ConfigManager"
	ComponentSystemMonitor = "SystemMonitor"
	ComponentBusSource     = "BusSource"
)
