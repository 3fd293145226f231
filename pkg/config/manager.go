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
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
)

// ConfigManager provides the coordinator's configuration.
type ConfigManager interface {
	// GetConfig returns the current configuration.
	GetConfig(ctx context.Context) (FullConfig, error)
}

// FileConfigManager implements ConfigManager by reading a yaml file.
// A missing file yields the default configuration; that default is
// persisted so the car always carries an inspectable config on disk.
type FileConfigManager struct {
	configPath string
	logger     *zap.SugaredLogger

	// mu prevents concurrent read/write cycles on the config file.
	mu sync.RWMutex
}

// NewFileConfigManager creates a manager for the given path; an empty
// path uses DefaultConfigPath.
// Note: prefer NewFileConfigManagerWithBackoff for application use.
func NewFileConfigManager(configPath string) *FileConfigManager {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	return &FileConfigManager{
		configPath: configPath,
		logger:     logger.For(logger.ComponentConfigManager),
	}
}

// GetConfig reads and validates the config file.
func (m *FileConfigManager) GetConfig(ctx context.Context) (FullConfig, error) {
	if ctx.Err() != nil {
		return FullConfig{}, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FullConfig{}, fmt.Errorf("config file %s does not exist: %w", m.configPath, err)
		}

		return FullConfig{}, fmt.Errorf("failed to read config file %s: %w", m.configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return FullConfig{}, fmt.Errorf("failed to parse config file %s: %w", m.configPath, err)
	}

	if err := config.Validate(); err != nil {
		return FullConfig{}, fmt.Errorf("invalid config in %s: %w", m.configPath, err)
	}

	return config, nil
}

// GetConfigOrCreateNew loads the config file, creating it with default
// values first when it does not exist.
func (m *FileConfigManager) GetConfigOrCreateNew(ctx context.Context) (FullConfig, error) {
	if ctx.Err() != nil {
		return FullConfig{}, ctx.Err()
	}

	if _, err := os.Stat(m.configPath); errors.Is(err, os.ErrNotExist) {
		if err := m.writeConfig(DefaultConfig()); err != nil {
			m.logger.Warnf("Failed to persist default config to %s: %v", m.configPath, err)

			return DefaultConfig(), nil
		}

		m.logger.Infof("Created default config at %s", m.configPath)
	}

	return m.GetConfig(ctx)
}

// writeConfig persists the configuration. Callers hold no lock.
func (m *FileConfigManager) writeConfig(config FullConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", m.configPath, err)
	}

	return nil
}

// FileConfigManagerWithBackoff wraps FileConfigManager so repeated load
// failures escalate: transient while retries remain, permanent once the
// retry bound is exhausted.
type FileConfigManagerWithBackoff struct {
	inner     *FileConfigManager
	policy    *backoff.RetryPolicy
	logger    *zap.SugaredLogger
	lastErr   error
	permanent bool
	mu        sync.Mutex
}

// NewFileConfigManagerWithBackoff creates the backoff-wrapped manager
// used by the application entry point.
func NewFileConfigManagerWithBackoff(configPath string) *FileConfigManagerWithBackoff {
	return &FileConfigManagerWithBackoff{
		inner:  NewFileConfigManager(configPath),
		policy: backoff.NewRetryPolicy(100*time.Millisecond, 2*time.Second, 5),
		logger: logger.For(logger.ComponentConfigManager),
	}
}

// GetConfig loads the config, retrying transient failures with
// exponential backoff before reporting a permanent failure.
func (m *FileConfigManagerWithBackoff) GetConfig(ctx context.Context) (FullConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.permanent {
		return FullConfig{}, backoff.NewPermanentError(
			fmt.Errorf("%s: %w", backoff.PermanentFailureError, m.lastErr))
	}

	m.policy.Reset()

	for {
		config, err := m.inner.GetConfigOrCreateNew(ctx)
		if err == nil {
			return config, nil
		}

		m.lastErr = err

		delay, ok := m.policy.Next()
		if !ok {
			m.permanent = true

			return FullConfig{}, backoff.NewPermanentError(
				fmt.Errorf("%s: config load failed after %d retries: %w",
					backoff.PermanentFailureError, m.policy.Attempts(), err))
		}

		m.logger.Warnf("Config load failed (attempt %d, retrying in %s): %v", m.policy.Attempts(), delay, err)

		select {
		case <-ctx.Done():
			return FullConfig{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// IsPermanentFailure reports whether config loading has given up.
func (m *FileConfigManagerWithBackoff) IsPermanentFailure() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.permanent
}

// GetLastError returns the most recent load error.
func (m *FileConfigManagerWithBackoff) GetLastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastErr
}
