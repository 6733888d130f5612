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
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 🧾 RenderSummary writes the human readable report of a run
func RenderSummary(w io.Writer, res *RunResult) error {
	verb := "modified"
	if res.DryRun {
		verb = "would modify"
	}

	fmt.Fprintf(w, "run %s (%s) %s\n", res.RunID, res.Mode, res.Root)
	fmt.Fprintf(w, "scanned %d files, %s %d\n\n", res.FilesScanned, verb, res.FilesModified)

	rules := pterm.TableData{{"rule", "occurrences"}}
	for _, id := range res.RuleOrder {
		rules = append(rules, []string{id, strconv.Itoa(res.PerRuleTotals[id])})
	}
	if err := renderTable(w, rules); err != nil {
		return err
	}

	if len(res.ModifiedPaths) > 0 {
		fmt.Fprintf(w, "\n%s files:\n", verb)
		for _, p := range res.ModifiedPaths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	problems := append(append([]FileError{}, res.Skipped...), res.Errors...)
	if len(problems) > 0 {
		fmt.Fprintf(w, "\nskipped and failed (%d):\n", len(problems))
		data := pterm.TableData{{"path", "kind", "error"}}
		for _, fe := range problems {
			data = append(data, []string{fe.Path, fe.Kind, fe.Message})
		}
		if err := renderTable(w, data); err != nil {
			return err
		}
	}

	return nil
}

// WriteJSON writes the RunResult as indented JSON
func WriteJSON(w io.Writer, res *RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return errors.Errorf("encoding result: %w", err)
	}
	return nil
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering table: %w", err)
	}
	fmt.Fprintln(w, out)
	return nil
}
