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

package position

import (
	"context"
	"math"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// SimulatedProvider drives a point around a circular track for bench
// runs. One orbit takes LapTime.
type SimulatedProvider struct {
	CenterLat float64
	CenterLon float64
	RadiusDeg float64
	LapTime   time.Duration
	started   time.Time
}

func NewSimulatedProvider(centerLat, centerLon float64) *SimulatedProvider {
	return &SimulatedProvider{
		CenterLat: centerLat,
		CenterLon: centerLon,
		RadiusDeg: 0.002,
		LapTime:   90 * time.Second,
		started:   time.Now(),
	}
}

// CurrentFix returns the simulated position, always valid.
func (p *SimulatedProvider) CurrentFix(_ context.Context) (frame.PositionFix, error) {
	angle := 2 * math.Pi * float64(time.Since(p.started)%p.LapTime) / float64(p.LapTime)

	return frame.PositionFix{
		Latitude:  p.CenterLat + p.RadiusDeg*math.Sin(angle),
		Longitude: p.CenterLon + p.RadiusDeg*math.Cos(angle),
		Valid:     true,
	}, nil
}
