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

// Package sink implements the consumers on the far side of the
// dispatcher. Every sink owns exactly one bounded queue and one
// downstream collaborator; what differs between them is the delivery
// policy: how hard to try, what to buffer and what to shed when the
// collaborator misbehaves.
package sink

import (
	"context"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/queue"
)

// FrameQueue is the queue type every sink consumes from.
type FrameQueue = queue.Bounded[*frame.AugmentedFrame]

// drainLoop empties q through process until the queue is empty or ctx
// expires. Per-frame errors are swallowed; drain is best effort.
func drainLoop(ctx context.Context, q *FrameQueue, process func(context.Context, *frame.AugmentedFrame) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, ok := q.TryPop()
		if !ok {
			return nil
		}

		_ = process(ctx, f)
	}
}

// sleepCtx waits d or until ctx is done, reporting whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
