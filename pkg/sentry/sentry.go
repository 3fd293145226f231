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

package sentry

import (
	"strings"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// enabled tracks whether sentry.Init succeeded. All report helpers fall
// back to plain logging when reporting is disabled, so the pipeline
// never depends on connectivity to the event backend.
var enabled = false

// InitSentry initializes error-event reporting. An empty DSN (the
// default, and the normal case on the in-car computer without uplink)
// leaves reporting disabled.
func InitSentry(dsn, appVersion string) {
	if dsn == "" {
		zap.S().Debug("Error-event reporting disabled (no DSN configured)")

		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:           dsn,
		Release:       "telemetry-core@" + appVersion,
		EnableTracing: false,
	})
	if err != nil {
		zap.S().Errorf("Failed to initialize error-event reporting: %s", err)

		return
	}

	enabled = true
}

func getMeaningfulErrorTitle(err error) string {
	message := err.Error()

	// Extract the first sentence or phrase (until period, comma or a colon)
	idx := strings.IndexAny(message, ".,:")
	if idx > 0 {
		message = message[:idx]
	}

	// Limit length of the event title
	if len(message) > 100 {
		message = message[:97] + "..."
	}

	return message
}

func createSentryEvent(level sentry.Level, err error) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = level
	event.Message = err.Error()

	exception := &sentry.Exception{
		Type:       getMeaningfulErrorTitle(err),
		Value:      err.Error(),
		Stacktrace: sentry.ExtractStacktrace(err),
	}
	event.Exception = []sentry.Exception{*exception}

	return event
}

// createSentryEventWithContext creates an event with additional context data.
func createSentryEventWithContext(level sentry.Level, err error, context map[string]interface{}) *sentry.Event {
	event := createSentryEvent(level, err)

	if context != nil {
		if event.Tags == nil {
			event.Tags = make(map[string]string)
		}

		for key, value := range context {
			switch convertedValue := value.(type) {
			case string:
				event.Tags[key] = convertedValue
			default:
				if event.Extra == nil {
					event.Extra = make(map[string]interface{})
				}

				event.Extra[key] = convertedValue
			}
		}
	}

	return event
}

// Helper function to send an event without touching the global hub scope.
func sendSentryEvent(event *sentry.Event) {
	if !enabled {
		return
	}

	localHub := sentry.CurrentHub().Clone()
	localHub.CaptureEvent(event)
}
