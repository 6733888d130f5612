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
	"context"
	"fmt"
	"io"
	"regexp"

	"gitlab.com/tozd/go/errors"
)

// ErrInvalidRule is the configuration error returned when a rule cannot be compiled.
var ErrInvalidRule = errors.Base("invalid rule")

// 🔄 Rule is a single pattern → replacement pair
type Rule struct {
	// Name identifies the rule in reports. Defaults to "rule<index>".
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Pattern is an RE2 regular expression matched against the whole file content.
	Pattern string `json:"pattern" yaml:"pattern"`

	// Replacement may reference capture groups ($1, ${name}) unless LiteralReplacement is set.
	Replacement string `json:"replacement" yaml:"replacement"`

	IgnoreCase         bool `json:"ignore_case,omitempty" yaml:"ignore_case,omitempty"`
	Literal            bool `json:"literal,omitempty" yaml:"literal,omitempty"`
	LiteralReplacement bool `json:"literal_replacement,omitempty" yaml:"literal_replacement,omitempty"`
}

// ID returns the name used for the rule at position i of a RuleSet
func (r Rule) ID(i int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("rule%d", i)
}

type compiledRule struct {
	Rule
	id string
	re *regexp.Regexp
}

// 📚 RuleSet is an ordered, immutable list of compiled rules.
// It is safe for concurrent use.
type RuleSet struct {
	rules []compiledRule
}

// 🏭 NewRuleSet compiles the rules in the order given
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	seen := make(map[string]int, len(rules))

	for i, rule := range rules {
		id := rule.ID(i)
		if prev, ok := seen[id]; ok {
			return nil, errors.Errorf("%w: rule %d: name %q already used by rule %d", ErrInvalidRule, i, id, prev)
		}
		seen[id] = i

		if rule.Pattern == "" {
			return nil, errors.Errorf("%w: rule %d (%s): pattern is required", ErrInvalidRule, i, id)
		}

		expr := rule.Pattern
		if rule.Literal {
			expr = regexp.QuoteMeta(expr)
		}
		if rule.IgnoreCase {
			expr = "(?i)" + expr
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Errorf("%w: rule %d (%s): compiling pattern %q: %s", ErrInvalidRule, i, id, rule.Pattern, err.Error())
		}

		rs.rules = append(rs.rules, compiledRule{Rule: rule, id: id, re: re})
	}

	return rs, nil
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// IDs returns the rule identities in declaration order
func (rs *RuleSet) IDs() []string {
	ids := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		ids[i] = r.id
	}
	return ids
}

// Rules returns a copy of the source rules in declaration order
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Rule
	}
	return out
}

// 📝 ChangeRecord is the number of matches one rule replaced in one file
type ChangeRecord struct {
	Index int
	Rule  string
	Count int
}

// ReplacementResult contains the results of applying a RuleSet to some content
type ReplacementResult struct {
	// WasModified indicates if any rule matched
	WasModified bool

	// ReplacementCount is the number of matches replaced across all rules
	ReplacementCount int

	// Counts holds the match count of every rule, aligned with the RuleSet
	Counts []int

	OriginalContent []byte
	ModifiedContent []byte

	ids []string
}

// Changes returns a record for every rule that matched at least once
func (r *ReplacementResult) Changes() []ChangeRecord {
	var out []ChangeRecord
	for i, n := range r.Counts {
		if n > 0 {
			out = append(out, ChangeRecord{Index: i, Rule: r.ids[i], Count: n})
		}
	}
	return out
}

// CountsByRule returns the match count of every rule keyed by rule identity
func (r *ReplacementResult) CountsByRule() map[string]int {
	out := make(map[string]int, len(r.Counts))
	for i, n := range r.Counts {
		out[r.ids[i]] = n
	}
	return out
}

// Apply runs every rule in order over content. Each rule makes exactly one
// non-overlapping pass over the output of the rules before it.
func (rs *RuleSet) Apply(content string) *ReplacementResult {
	result := &ReplacementResult{
		Counts:          make([]int, len(rs.rules)),
		OriginalContent: []byte(content),
		ids:             rs.IDs(),
	}

	current := content
	for i := range rs.rules {
		next, n := rs.rules[i].replace(current)
		result.Counts[i] = n
		if n > 0 {
			result.ReplacementCount += n
			current = next
		}
	}

	result.WasModified = result.ReplacementCount > 0
	result.ModifiedContent = []byte(current)
	return result
}

// ReplaceText reads content, checks that it decodes as text and applies the rules
func (rs *RuleSet) ReplaceText(ctx context.Context, content io.Reader) (*ReplacementResult, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	return rs.Apply(decoded), nil
}

func (r *compiledRule) replace(s string) (string, int) {
	matches := r.re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, 0
	}

	buf := make([]byte, 0, len(s))
	last := 0
	for _, m := range matches {
		buf = append(buf, s[last:m[0]]...)
		if r.LiteralReplacement {
			buf = append(buf, r.Replacement...)
		} else {
			buf = r.re.ExpandString(buf, r.Replacement, s, m)
		}
		last = m[1]
	}
	buf = append(buf, s[last:]...)

	return string(buf), len(matches)
}
