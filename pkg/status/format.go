// Copyright 2025 walteh LLC
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

package status

import (
	"fmt"
)

// FileFormatter defines how file outcomes and progress should be formatted
type FileFormatter interface {
	// FormatOutcome formats the outcome of one file
	FormatOutcome(outcome FileOutcome) string

	// FormatProgress formats a progress message
	FormatProgress(processed int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFileFormatter provides a default implementation of FileFormatter
type DefaultFileFormatter struct{}

// NewDefaultFileFormatter creates a new DefaultFileFormatter
func NewDefaultFileFormatter() *DefaultFileFormatter {
	return &DefaultFileFormatter{}
}

// FormatOutcome formats a file outcome with emojis
func (f *DefaultFileFormatter) FormatOutcome(outcome FileOutcome) string {
	switch outcome.Status {
	case StatusWritten:
		return fmt.Sprintf("📝 Rewrote %s (%d replacements)", outcome.Target, outcome.Replacements)
	case StatusPlanned:
		return fmt.Sprintf("🔍 Would rewrite %s (%d replacements)", outcome.Target, outcome.Replacements)
	case StatusUndecodable:
		return fmt.Sprintf("⏭️  Skipped %s (not text)", outcome.Path)
	case StatusWriteError:
		return fmt.Sprintf("❌ Failed to write %s", outcome.Target)
	case StatusReadError:
		return fmt.Sprintf("❌ Failed to read %s", outcome.Path)
	default:
		return fmt.Sprintf("👍 Unchanged %s", outcome.Path)
	}
}

// FormatProgress formats a progress message
func (f *DefaultFileFormatter) FormatProgress(processed int) string {
	if processed == 1 {
		return "⏳ Progress: 1 file"
	}
	return fmt.Sprintf("⏳ Progress: %d files", processed)
}

// FormatError formats an error message with emoji
func (f *DefaultFileFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
