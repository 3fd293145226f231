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

// Package queue implements the bounded FIFO exchange between the
// pipeline stages. Push never blocks: a full queue applies its overflow
// policy and reports the drop, so a slow consumer can only ever grow
// its own backlog, never stall a producer.
package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Policy selects what happens when Push finds the queue full.
type Policy int

const (
	// DropOldest discards the oldest buffered item and inserts the new
	// one. The queue keeps the most recent window of items.
	DropOldest Policy = iota

	// KeepLatest overwrites the buffered contents with the new item.
	// Meant for single-slot queues whose consumer only ever wants the
	// newest value.
	KeepLatest
)

// Bounded is a fixed-capacity FIFO with a non-blocking producer side
// and a timeout-bounded consumer side.
type Bounded[T any] struct {
	name     string
	capacity int
	policy   Policy

	mu    sync.Mutex
	items []T
	depth atomic.Int64

	// notEmpty carries at most one wakeup; Pop re-checks under the
	// lock, so a lost signal only costs a timeout round.
	notEmpty chan struct{}
}

// NewBounded creates a queue with the given capacity and overflow
// policy. Capacity must be at least 1.
func NewBounded[T any](name string, capacity int, policy Policy) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &Bounded[T]{
		name:     name,
		capacity: capacity,
		policy:   policy,
		items:    make([]T, 0, capacity),
		notEmpty: make(chan struct{}, 1),
	}
}

// Name returns the queue's name, used for metrics and health labels.
func (q *Bounded[T]) Name() string {
	return q.name
}

// Push inserts an item without ever waiting. It returns true when the
// overflow policy discarded an item to make room.
func (q *Bounded[T]) Push(item T) (dropped bool) {
	q.mu.Lock()

	if len(q.items) >= q.capacity {
		dropped = true

		switch q.policy {
		case KeepLatest:
			q.items = q.items[:0]
		case DropOldest:
			copy(q.items, q.items[1:])
			q.items = q.items[:len(q.items)-1]
		}
	}

	q.items = append(q.items, item)
	q.depth.Store(int64(len(q.items)))
	q.mu.Unlock()

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}

	return dropped
}

// Pop removes the oldest item, waiting up to timeout for one to
// arrive. The second return is false on timeout, which workers use as
// their shutdown-check point.
func (q *Bounded[T]) Pop(timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)

	for {
		if item, ok := q.tryPop(); ok {
			return item, true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, false
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.notEmpty:
			timer.Stop()
		case <-timer.C:
			var zero T
			return zero, false
		}
	}
}

// TryPop removes the oldest item without waiting.
func (q *Bounded[T]) TryPop() (T, bool) {
	return q.tryPop()
}

func (q *Bounded[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	item := q.items[0]
	copy(q.items, q.items[1:])
	q.items = q.items[:len(q.items)-1]
	q.depth.Store(int64(len(q.items)))

	return item, true
}

// DiscardAll drops every buffered item and returns how many were
// discarded. Called once the shutdown grace period has elapsed.
func (q *Bounded[T]) DiscardAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = q.items[:0]
	q.depth.Store(0)

	return n
}

// Depth is a lock-free read of the current item count, for monitoring.
func (q *Bounded[T]) Depth() int {
	return int(q.depth.Load())
}

// Capacity returns the configured capacity.
func (q *Bounded[T]) Capacity() int {
	return q.capacity
}
