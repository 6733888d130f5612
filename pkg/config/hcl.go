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

package config

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/walteh/retext/pkg/text"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

var envNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// 🔧 HCLParser implements the Parser interface for HCL files.
// Expressions may reference environment variables as env.NAME.
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(os.Environ()),
		},
	}

	// Define HCL schema
	type hclRule struct {
		Name               string `hcl:"name,label"`
		Pattern            string `hcl:"pattern"`
		Replacement        string `hcl:"replacement,optional"`
		IgnoreCase         bool   `hcl:"ignore_case,optional"`
		Literal            bool   `hcl:"literal,optional"`
		LiteralReplacement bool   `hcl:"literal_replacement,optional"`
	}

	type hclConfig struct {
		Rules       []hclRule `hcl:"rule,block"`
		ExcludeDirs []string  `hcl:"exclude_dirs,optional"`
		Include     []string  `hcl:"include,optional"`
		Exclude     []string  `hcl:"exclude,optional"`
		Concurrency int       `hcl:"concurrency,optional"`
		BackupDir   string    `hcl:"backup_dir,optional"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to config
	cfg := &Config{
		ExcludeDirs: hclCfg.ExcludeDirs,
		Include:     hclCfg.Include,
		Exclude:     hclCfg.Exclude,
		Concurrency: hclCfg.Concurrency,
		BackupDir:   hclCfg.BackupDir,
	}
	for _, r := range hclCfg.Rules {
		cfg.Rules = append(cfg.Rules, text.Rule{
			Name:               r.Name,
			Pattern:            r.Pattern,
			Replacement:        r.Replacement,
			IgnoreCase:         r.IgnoreCase,
			Literal:            r.Literal,
			LiteralReplacement: r.LiteralReplacement,
		})
	}

	return cfg, nil
}

// envObject exposes the environment as a cty object. Variables whose names
// are not valid HCL identifiers are left out.
func envObject(environ []string) cty.Value {
	vals := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !envNameRe.MatchString(name) {
			continue
		}
		vals[name] = cty.StringVal(value)
	}
	if len(vals) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vals)
}
