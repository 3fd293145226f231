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

// Package monitor samples host-level resource usage for the health
// snapshot.
package monitor

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics is one sample of host resource usage.
type SystemMetrics struct {
	CPUPercent     float64 `json:"cpuPercent"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	Goroutines     int     `json:"goroutines"`
}

// Sampler provides system metric samples.
type Sampler interface {
	Sample(ctx context.Context) (SystemMetrics, error)
}

// SystemSampler reads CPU and memory usage from the host.
type SystemSampler struct{}

func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// Sample reads the current host usage. CPU percent is since the
// previous call, so the first sample reads zero.
func (s *SystemSampler) Sample(ctx context.Context) (SystemMetrics, error) {
	metrics := SystemMetrics{Goroutines: runtime.NumGoroutine()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return metrics, err
	}

	if len(percents) > 0 {
		metrics.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return metrics, err
	}

	metrics.MemUsedPercent = vm.UsedPercent

	return metrics, nil
}
