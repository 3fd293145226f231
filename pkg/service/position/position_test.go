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

package position_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/service/position"
)

var _ = Describe("CachedProvider", func() {
	var (
		provider *position.MockProvider
		cached   *position.CachedProvider
	)

	BeforeEach(func() {
		provider = position.NewMockProvider()
		cached = position.NewCachedProvider(provider)
	})

	It("passes a fresh fix through unchanged", func() {
		provider.SetFix(frame.PositionFix{Latitude: 38.92, Longitude: -95.67, Valid: true})

		fix := cached.Fix(context.Background(), 50*time.Millisecond)
		Expect(fix.Valid).To(BeTrue())
		Expect(fix.Stale).To(BeFalse())
		Expect(fix.Latitude).To(BeNumerically("~", 38.92, 0.001))
	})

	It("returns the cached fix marked stale on timeout", func() {
		cached.Fix(context.Background(), 50*time.Millisecond)

		provider.SetupMockForTimeout()

		start := time.Now()
		fix := cached.Fix(context.Background(), 20*time.Millisecond)

		Expect(time.Since(start)).To(BeNumerically("<", 200*time.Millisecond))
		Expect(fix.Stale).To(BeTrue())
		Expect(fix.Valid).To(BeTrue())
		Expect(fix.Age).To(BeNumerically(">", 0))
	})

	It("returns the cached fix marked stale on a receiver error", func() {
		cached.Fix(context.Background(), 50*time.Millisecond)

		provider.SetupMockForError(errors.New("receiver unplugged"))

		fix := cached.Fix(context.Background(), 50*time.Millisecond)
		Expect(fix.Stale).To(BeTrue())
		Expect(fix.Valid).To(BeTrue())
	})

	It("returns an invalid stale fix before the first fix arrives", func() {
		provider.SetupMockForError(errors.New("no satellites"))

		fix := cached.Fix(context.Background(), 50*time.Millisecond)
		Expect(fix.Valid).To(BeFalse())
		Expect(fix.Stale).To(BeTrue())
	})
})
