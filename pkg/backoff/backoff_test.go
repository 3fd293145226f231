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

package backoff_test

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/backoff"
)

var _ = Describe("RetryPolicy", func() {
	It("allows exactly the configured number of retries", func() {
		policy := backoff.NewRetryPolicy(time.Millisecond, 10*time.Millisecond, 3)

		for i := 0; i < 3; i++ {
			_, ok := policy.Next()
			Expect(ok).To(BeTrue())
		}

		_, ok := policy.Next()
		Expect(ok).To(BeFalse())
		Expect(policy.Attempts()).To(Equal(3))
	})

	It("grows the delay up to the ceiling", func() {
		policy := backoff.NewRetryPolicy(10*time.Millisecond, 50*time.Millisecond, 20)

		var last time.Duration
		for i := 0; i < 20; i++ {
			delay, ok := policy.Next()
			Expect(ok).To(BeTrue())
			// Jitter aside, the delay never exceeds the ceiling plus
			// its randomization factor.
			Expect(delay).To(BeNumerically("<=", 75*time.Millisecond))
			last = delay
		}

		Expect(last).To(BeNumerically(">", 0))
	})

	It("starts the schedule over after Reset", func() {
		policy := backoff.NewRetryPolicy(time.Millisecond, 10*time.Millisecond, 1)

		_, ok := policy.Next()
		Expect(ok).To(BeTrue())
		_, ok = policy.Next()
		Expect(ok).To(BeFalse())

		policy.Reset()
		Expect(policy.Attempts()).To(BeZero())

		_, ok = policy.Next()
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("Error categories", func() {
	It("wraps and detects each category", func() {
		base := errors.New("boom")

		Expect(backoff.IsIgnoredError(backoff.NewIgnoredError(base))).To(BeTrue())
		Expect(backoff.IsTransientError(backoff.NewTransientError(base))).To(BeTrue())
		Expect(backoff.IsPermanentError(backoff.NewPermanentError(base))).To(BeTrue())

		Expect(backoff.IsPermanentError(backoff.NewTransientError(base))).To(BeFalse())
	})

	It("defaults an uncategorized error to transient", func() {
		err := backoff.CategorizeError(errors.New("boom"))

		Expect(backoff.IsTransientError(err)).To(BeTrue())
	})

	It("keeps an existing category on recategorization", func() {
		err := backoff.NewPermanentError(errors.New("boom"))

		Expect(backoff.IsPermanentError(backoff.CategorizeError(err))).To(BeTrue())
	})

	It("detects a wrapped categorized error", func() {
		err := fmt.Errorf("outer: %w", backoff.NewPermanentError(errors.New("boom")))

		Expect(backoff.IsPermanentError(err)).To(BeTrue())
	})

	It("preserves the original message", func() {
		Expect(backoff.NewTransientError(errors.New("boom"))).To(MatchError("boom"))
	})
})
