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

package frame

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sunchaser-solar/telemetry-core/pkg/constants"
)

const (
	lapCountSize = 2
	sectionSize  = 1
	durationSize = 4

	// LapFieldsSize is the total number of bytes the lap fields occupy.
	LapFieldsSize = lapCountSize + sectionSize + durationSize

	// AppendOffset selects append-at-end placement for a field group.
	AppendOffset = -1
)

// Layout describes where the lap fields live inside an augmented
// frame. The data-format definition is versioned outside this
// repository, so the offsets are configuration, never constants.
//
// With LapCountOffset == AppendOffset the three fields are packed
// little-endian (uint16, uint8, uint32) directly after the raw frame,
// which is the layout the current firmware revision ships.
type Layout struct {
	// Version names the data-format revision the offsets belong to.
	Version string `yaml:"version"`
	// LapCountOffset is the absolute byte offset of the uint16 lap
	// count, or AppendOffset for the packed append layout.
	LapCountOffset int `yaml:"lapCountOffset"`
	// SectionOffset is the absolute byte offset of the uint8 section.
	SectionOffset int `yaml:"sectionOffset"`
	// DurationOffset is the absolute byte offset of the uint32 lap
	// duration in milliseconds.
	DurationOffset int `yaml:"durationOffset"`
}

// DefaultLayout returns the packed append layout of the current
// firmware data format.
func DefaultLayout() Layout {
	return Layout{
		Version:        "sc2-v1",
		LapCountOffset: AppendOffset,
		SectionOffset:  AppendOffset,
		DurationOffset: AppendOffset,
	}
}

// Validate rejects layouts that mix append and absolute placement or
// use negative offsets other than AppendOffset.
func (l Layout) Validate() error {
	if l.Version == "" {
		return fmt.Errorf("frame layout has no version")
	}

	appended := l.LapCountOffset == AppendOffset
	if (l.SectionOffset == AppendOffset) != appended || (l.DurationOffset == AppendOffset) != appended {
		return fmt.Errorf("frame layout %s mixes append and absolute offsets", l.Version)
	}

	if !appended && (l.LapCountOffset < 0 || l.SectionOffset < 0 || l.DurationOffset < 0) {
		return fmt.Errorf("frame layout %s has negative offsets", l.Version)
	}

	return nil
}

// resolve maps the layout onto a raw frame of the given length,
// returning absolute offsets and the total augmented length.
func (l Layout) resolve(rawLen int) (lapCount, section, duration, total int) {
	if l.LapCountOffset == AppendOffset {
		return rawLen, rawLen + lapCountSize, rawLen + lapCountSize + sectionSize, rawLen + LapFieldsSize
	}

	total = rawLen
	for _, end := range []int{
		l.LapCountOffset + lapCountSize,
		l.SectionOffset + sectionSize,
		l.DurationOffset + durationSize,
	} {
		if end > total {
			total = end
		}
	}

	return l.LapCountOffset, l.SectionOffset, l.DurationOffset, total
}

// Augment builds the immutable AugmentedFrame: the raw bytes are copied
// once, the lap fields are written at the layout's offsets and the
// result is sealed under a fresh frame id. The lap duration is capped
// at the data format's upper bound.
func Augment(raw RawFrame, lap LapState, fix PositionFix, layout Layout) *AugmentedFrame {
	if lap.LapDurationMs > constants.MaxLapDurationMs {
		lap.LapDurationMs = constants.MaxLapDurationMs
	}

	lapOff, secOff, durOff, total := layout.resolve(len(raw.Data))

	data := make([]byte, total)
	copy(data, raw.Data)

	binary.LittleEndian.PutUint16(data[lapOff:], lap.LapCount)
	data[secOff] = lap.CurrentSection
	binary.LittleEndian.PutUint32(data[durOff:], lap.LapDurationMs)

	return &AugmentedFrame{
		id:       uuid.New(),
		data:     data,
		lap:      lap,
		fix:      fix,
		captured: time.Now(),
	}
}

// DecodeLapState reads the lap fields back out of an augmented frame,
// for consumers that only see the wire bytes.
func DecodeLapState(data []byte, rawLen int, layout Layout) (LapState, error) {
	lapOff, secOff, durOff, total := layout.resolve(rawLen)
	if len(data) < total {
		return LapState{}, fmt.Errorf("frame too short for layout %s: %d < %d", layout.Version, len(data), total)
	}

	return LapState{
		LapCount:       binary.LittleEndian.Uint16(data[lapOff:]),
		CurrentSection: data[secOff],
		LapDurationMs:  binary.LittleEndian.Uint32(data[durOff:]),
	}, nil
}

// FormatLapDuration renders a lap duration the way the driver display
// shows it, m:ss.ss.
func FormatLapDuration(ms uint32) string {
	minutes := ms / 60000
	seconds := float64(ms%60000) / 1000.0

	return fmt.Sprintf("%d:%05.2f", minutes, seconds)
}
