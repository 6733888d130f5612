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

package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/retext/cmd/retext/opts"
	"github.com/walteh/retext/pkg/text"
	"gitlab.com/tozd/go/errors"
)

type ruleView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Flags       string `json:"flags,omitempty"`
}

func NewRulesCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate the rule table and print it in application order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ro.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}

			rs, err := cfg.RuleSet()
			if err != nil {
				return err
			}

			views := make([]ruleView, 0, rs.Len())
			for i, r := range rs.Rules() {
				views = append(views, ruleView{
					Index:       i,
					Name:        r.ID(i),
					Pattern:     r.Pattern,
					Replacement: r.Replacement,
					Flags:       ruleFlags(r),
				})
			}

			if ro.Flags.JSON {
				enc := json.NewEncoder(ro.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(views); err != nil {
					return errors.Errorf("encoding rules: %w", err)
				}
				return nil
			}

			data := pterm.TableData{{"#", "name", "pattern", "replacement", "flags"}}
			for _, v := range views {
				data = append(data, []string{fmt.Sprint(v.Index), v.Name, v.Pattern, v.Replacement, v.Flags})
			}
			out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering rules: %w", err)
			}
			fmt.Fprintln(ro.Stdout, out)
			return nil
		},
	}

	return cmd
}

func ruleFlags(r text.Rule) string {
	var flags []string
	if r.IgnoreCase {
		flags = append(flags, "ignore_case")
	}
	if r.Literal {
		flags = append(flags, "literal")
	}
	if r.LiteralReplacement {
		flags = append(flags, "literal_replacement")
	}
	return strings.Join(flags, ",")
}
