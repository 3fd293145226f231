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

// Package storage persists telemetry batches to the onboard disk.
package storage

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Record is one frame flattened for persistence.
type Record struct {
	FrameID        string
	Captured       time.Time
	LapCount       uint16
	CurrentSection uint8
	LapDurationMs  uint32
	Data           []byte
}

// Writer persists one batch. AppendBatch must either persist the whole
// batch or fail without partial visibility to the caller.
type Writer interface {
	AppendBatch(ctx context.Context, batch []Record) error
	Close() error
}

// CSVWriter appends records to a CSV file, one row per frame with the
// raw bytes hex encoded. Rows are flushed per batch so a power loss
// costs at most the batch in flight.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log %s: %w", path, err)
	}

	return &CSVWriter{file: file, csv: csv.NewWriter(file)}, nil
}

func (w *CSVWriter) AppendBatch(ctx context.Context, batch []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, rec := range batch {
		row := []string{
			rec.FrameID,
			rec.Captured.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(int(rec.LapCount)),
			strconv.Itoa(int(rec.CurrentSection)),
			strconv.Itoa(int(rec.LapDurationMs)),
			hex.EncodeToString(rec.Data),
		}
		if err := w.csv.Write(row); err != nil {
			return fmt.Errorf("write telemetry row: %w", err)
		}
	}

	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush telemetry batch: %w", err)
	}

	return nil
}

func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()

	return w.file.Close()
}
