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

// Package position abstracts the GNSS receiver. The cached wrapper
// keeps the ingest loop's latency bounded: a slow receiver costs at
// most the fix timeout, after which the last known fix is reused and
// marked stale.
package position

import (
	"context"
	"sync"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
	"github.com/sunchaser-solar/telemetry-core/pkg/metrics"
)

// Provider delivers the current GNSS fix.
type Provider interface {
	CurrentFix(ctx context.Context) (frame.PositionFix, error)
}

// CachedProvider wraps a Provider with a bounded-latency Fix call.
type CachedProvider struct {
	provider Provider

	mu     sync.Mutex
	last   frame.PositionFix
	lastAt time.Time
	valid  bool
}

func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{provider: provider}
}

type fixResult struct {
	fix frame.PositionFix
	err error
}

// Fix queries the provider with a hard deadline. On timeout or error
// the last successful fix is returned with Stale set and its Age
// recomputed; if no fix was ever obtained the zero fix is returned
// with Valid false.
func (c *CachedProvider) Fix(ctx context.Context, timeout time.Duration) frame.PositionFix {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan fixResult, 1)

	go func() {
		fix, err := c.provider.CurrentFix(queryCtx)
		ch <- fixResult{fix: fix, err: err}
	}()

	select {
	case res := <-ch:
		if res.err == nil {
			c.store(res.fix)

			return res.fix
		}

		logger.For(logger.ComponentIngest).Debugf("Position fix failed: %v", res.err)
	case <-queryCtx.Done():
		// The goroutine keeps the receiver handle busy until it
		// returns; its late result is discarded via the buffered
		// channel.
	}

	metrics.IncStaleFixes()

	return c.cached()
}

func (c *CachedProvider) store(fix frame.PositionFix) {
	c.mu.Lock()
	c.last = fix
	c.lastAt = time.Now()
	c.valid = true
	c.mu.Unlock()
}

func (c *CachedProvider) cached() frame.PositionFix {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return frame.PositionFix{Stale: true}
	}

	fix := c.last
	fix.Stale = true
	fix.Age = time.Since(c.lastAt)

	return fix
}
