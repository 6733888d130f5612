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

package text

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// lines of unchanged text kept around each change
const diffContext = 2

// 📝 Diff renders a line based diff between before and after.
// It returns an empty string when the two are equal.
func Diff(name, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var buf strings.Builder
	fmt.Fprintf(&buf, "--- %s\n+++ %s\n", name, name)

	for i, d := range diffs {
		ls := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&buf, "-", ls)
		case diffmatchpatch.DiffInsert:
			writeLines(&buf, "+", ls)
		case diffmatchpatch.DiffEqual:
			head, tail := 0, 0
			if i > 0 {
				head = diffContext
			}
			if i < len(diffs)-1 {
				tail = diffContext
			}
			if len(ls) <= head+tail {
				writeLines(&buf, " ", ls)
				continue
			}
			writeLines(&buf, " ", ls[:head])
			if tail > 0 {
				buf.WriteString("@@\n")
				writeLines(&buf, " ", ls[len(ls)-tail:])
			}
		}
	}

	return buf.String()
}

func splitLines(s string) []string {
	ls := strings.SplitAfter(s, "\n")
	if len(ls) > 0 && ls[len(ls)-1] == "" {
		ls = ls[:len(ls)-1]
	}
	for i := range ls {
		ls[i] = strings.TrimSuffix(ls[i], "\n")
	}
	return ls
}

func writeLines(buf *strings.Builder, prefix string, ls []string) {
	for _, l := range ls {
		buf.WriteString(prefix)
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}
