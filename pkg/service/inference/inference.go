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

// Package inference runs the onboard strategy model over accumulated
// telemetry windows.
package inference

import (
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
)

// Engine consumes one accumulated sample window. Invocations are
// fire-and-forget from the pipeline's point of view; a slow model run
// must never block frame accumulation.
type Engine interface {
	Infer(ctx context.Context, window []*frame.AugmentedFrame) error
}

// EnergyEstimator is the current strategy model: it averages speed and
// electrical power over the window and logs the projected consumption.
// Frames too short to carry the packed speed/voltage/current triple
// are skipped.
type EnergyEstimator struct {
	logger *zap.SugaredLogger
}

func NewEnergyEstimator() *EnergyEstimator {
	return &EnergyEstimator{logger: logger.For(logger.ComponentInferenceSink)}
}

func (e *EnergyEstimator) Infer(ctx context.Context, window []*frame.AugmentedFrame) error {
	var speedSum, powerSum float64

	samples := 0

	for _, f := range window {
		if err := ctx.Err(); err != nil {
			return err
		}

		data := f.Bytes()
		if len(data) < 12 {
			continue
		}

		speed := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
		voltage := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4:])))
		current := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[8:])))

		speedSum += speed
		powerSum += voltage * current
		samples++
	}

	if samples == 0 {
		return nil
	}

	avgSpeed := speedSum / float64(samples)
	avgPower := powerSum / float64(samples)

	// Wh per km at the window's average speed.
	consumption := 0.0
	if avgSpeed > 0 {
		consumption = avgPower / (avgSpeed * 3.6)
	}

	e.logger.Infof("Strategy window: %d samples, avg speed %.1f m/s, avg power %.0f W, %.1f Wh/km",
		samples, avgSpeed, avgPower, consumption)

	return nil
}
