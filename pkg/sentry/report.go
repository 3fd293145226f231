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
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
	IssueTypeFatal   IssueType = "fatal"
)

func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	if log == nil {
		// If logger initialization failed somehow, create a no-op logger to avoid nil panics
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeFatal:
		log.Fatalf("Fatal issue: %s", err)
	case IssueTypeError:
		log.Errorf("%s", err)
		sendSentryEvent(createSentryEvent(sentry.LevelError, err))
	case IssueTypeWarning:
		log.Warnf("%s", err)
		sendSentryEvent(createSentryEvent(sentry.LevelWarning, err))
	}
}

func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithContext reports an issue with additional context data attached to the event.
func ReportIssueWithContext(err error, issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeFatal:
		log.Fatalf("Fatal issue: %s (context: %v)", err, context)
	case IssueTypeError:
		log.Errorf("%s (context: %v)", err, context)
		sendSentryEvent(createSentryEventWithContext(sentry.LevelError, err, context))
	case IssueTypeWarning:
		log.Warnf("%s (context: %v)", err, context)
		sendSentryEvent(createSentryEventWithContext(sentry.LevelWarning, err, context))
	}
}

// ReportWorkerError reports a worker-related error with proper context.
func ReportWorkerError(log *zap.SugaredLogger, workerID string, sinkKind string, operation string, err error) {
	context := map[string]interface{}{
		"worker_id": workerID,
		"sink_kind": sinkKind,
		"operation": operation,
	}
	ReportIssueWithContext(err, IssueTypeError, log, context)
}

// ReportWorkerFailure reports a critical worker entering the failed state.
func ReportWorkerFailure(log *zap.SugaredLogger, workerID string, err error) {
	context := map[string]interface{}{
		"worker_id": workerID,
	}
	ReportIssueWithContext(err, IssueTypeError, log, context)
}
