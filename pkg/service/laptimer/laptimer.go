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

// Package laptimer computes lap count, track section and running lap
// duration from position fixes.
package laptimer

import (
	"context"
	"math"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// Engine turns position fixes into lap state. Implementations must not
// block beyond the caller's per-update budget.
type Engine interface {
	Update(ctx context.Context, fix frame.PositionFix) (frame.LapState, error)
}

// Waypoint is a point on the track centerline. The first waypoint is
// the start/finish line.
type Waypoint struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// GeofenceEngine counts laps by start/finish line crossings and maps
// the car to a section by the nearest waypoint. A crossing is an entry
// into the start/finish radius after having left it, which debounces
// slow passes through the line.
type GeofenceEngine struct {
	waypoints []Waypoint
	radiusM   float64

	lapCount   uint16
	section    uint8
	lapStart   time.Time
	insideGate bool
	started    bool
	now        func() time.Time
}

// NewGeofenceEngine builds an engine for the given track. radiusM is
// the capture radius of the start/finish gate in meters.
func NewGeofenceEngine(waypoints []Waypoint, radiusM float64) *GeofenceEngine {
	return &GeofenceEngine{
		waypoints: waypoints,
		radiusM:   radiusM,
		now:       time.Now,
	}
}

// Update advances the lap state with a new fix. Invalid fixes keep the
// previous state; stale fixes still advance the running duration.
func (e *GeofenceEngine) Update(_ context.Context, fix frame.PositionFix) (frame.LapState, error) {
	if fix.Valid {
		e.advance(fix)
	}

	return e.state(), nil
}

func (e *GeofenceEngine) advance(fix frame.PositionFix) {
	if len(e.waypoints) == 0 {
		return
	}

	gate := e.waypoints[0]
	inside := haversineMeters(fix.Latitude, fix.Longitude, gate.Latitude, gate.Longitude) <= e.radiusM

	if inside && !e.insideGate {
		if !e.started {
			e.started = true
		} else {
			e.lapCount++
		}

		e.lapStart = e.now()
	}

	e.insideGate = inside
	e.section = e.nearestSection(fix)
}

func (e *GeofenceEngine) nearestSection(fix frame.PositionFix) uint8 {
	best := 0
	bestDist := math.MaxFloat64

	for i, wp := range e.waypoints {
		d := haversineMeters(fix.Latitude, fix.Longitude, wp.Latitude, wp.Longitude)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	return uint8(best)
}

func (e *GeofenceEngine) state() frame.LapState {
	var durationMs uint32
	if e.started {
		durationMs = uint32(e.now().Sub(e.lapStart).Milliseconds())
	}

	return frame.LapState{
		LapCount:       e.lapCount,
		CurrentSection: e.section,
		LapDurationMs:  durationMs,
	}
}

const earthRadiusM = 6371000.0

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}
