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

package backoff

import (
	"time"

	cenkalti "github.com/cenkalti/backoff"
)

// RetryPolicy is a bounded exponential backoff schedule used by sink
// workers for transient delivery failures. One policy instance covers
// one in-flight frame; Reset starts the schedule over for the next one.
type RetryPolicy struct {
	bo         *cenkalti.ExponentialBackOff
	maxRetries int
	attempts   int
}

// NewRetryPolicy creates a retry schedule with the given base interval,
// interval ceiling and retry bound.
func NewRetryPolicy(baseInterval, maxInterval time.Duration, maxRetries int) *RetryPolicy {
	bo := cenkalti.NewExponentialBackOff()
	bo.InitialInterval = baseInterval
	bo.MaxInterval = maxInterval
	// The retry count is the bound here, not elapsed time.
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &RetryPolicy{
		bo:         bo,
		maxRetries: maxRetries,
	}
}

// Next returns the delay before the next retry attempt, or false when
// the retry bound is exhausted and the frame must be dropped.
func (p *RetryPolicy) Next() (time.Duration, bool) {
	if p.attempts >= p.maxRetries {
		return 0, false
	}

	p.attempts++

	delay := p.bo.NextBackOff()
	if delay == cenkalti.Stop {
		return 0, false
	}

	return delay, true
}

// Attempts returns how many retries have been consumed since the last Reset.
func (p *RetryPolicy) Attempts() int {
	return p.attempts
}

// Reset starts the schedule over for a new frame.
func (p *RetryPolicy) Reset() {
	p.attempts = 0
	p.bo.Reset()
}
