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
	"context"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// LoadConfigWithEnvOverrides loads the config file and applies
// environment variable overrides on top.
//
// Order of precedence (highest to lowest):
// 1. Environment variables (METRICS_PORT, STATUS_PORT, SENTRY_DSN, SIMULATE_BUS)
// 2. Existing config file values
// 3. Default values
//
// The overrides are runtime-only; they are not written back to the
// config file, so a pit-lane test run with SIMULATE_BUS=1 leaves the
// car's persisted configuration untouched.
func LoadConfigWithEnvOverrides(ctx context.Context, manager ConfigManager, log *zap.SugaredLogger) (FullConfig, error) {
	config, err := manager.GetConfig(ctx)
	if err != nil {
		return FullConfig{}, err
	}

	if port, ok := envInt("METRICS_PORT"); ok {
		config.Agent.MetricsPort = port
	}

	if port, ok := envInt("STATUS_PORT"); ok {
		config.Agent.StatusPort = port
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		config.Agent.SentryDSN = dsn
	}

	if sim := os.Getenv("SIMULATE_BUS"); sim != "" {
		simulate, err := strconv.ParseBool(sim)
		if err != nil {
			log.Warnf("Ignoring invalid SIMULATE_BUS value %q: %v", sim, err)
		} else {
			config.Agent.SimulateBus = simulate
		}
	}

	return config, nil
}

func envInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}

	return n, true
}
