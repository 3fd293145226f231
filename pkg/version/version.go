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

// Package version carries the build version stamped in at link time.
package version

// appVersion is set via -ldflags "-X .../pkg/version.appVersion=v1.2.3".
var appVersion = "0.0.0-dev"

// GetAppVersion returns the stamped build version.
func GetAppVersion() string {
	return appVersion
}
