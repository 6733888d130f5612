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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/retext/pkg/text"
	"github.com/walteh/retext/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidConfig is returned for configuration files that cannot be used.
var ErrInvalidConfig = errors.Base("invalid config")

// DefaultFilenames are the config files looked up by Discover, in order
var DefaultFilenames = []string{
	".retext.yaml",
	".retext.hcl",
	".retext.json",
	".retext",
}

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Config represents the complete configuration
type Config struct {
	Rules       []text.Rule `json:"rules" yaml:"rules"`                                   // Ordered rule table
	ExcludeDirs []string    `json:"exclude_dirs,omitempty" yaml:"exclude_dirs,omitempty"` // Directory names pruned at any depth
	Include     []string    `json:"include,omitempty" yaml:"include,omitempty"`           // Globs a file must match
	Exclude     []string    `json:"exclude,omitempty" yaml:"exclude,omitempty"`           // Globs that drop a file
	Concurrency int         `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`   // Worker count, 0 for the default
	BackupDir   string      `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`     // Where originals are copied before a rewrite

	location string
}

// 🎯 Load loads the configuration from a file.
// The format is determined by the file extension; a bare .retext file is
// tried as YAML first and then as HCL.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg *Config
	if filepath.Ext(path) == ".retext" || filepath.Base(path) == ".retext" {
		cfg, err = parseAny(ctx, data)
	} else {
		p := GetParser(path)
		if p == nil {
			return nil, errors.Errorf("%w: no parser found for file: %s", ErrInvalidConfig, path)
		}
		cfg, err = p.Parse(ctx, data)
	}
	if err != nil {
		return nil, errors.Errorf("%w: %s: %s", ErrInvalidConfig, path, err.Error())
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config %s: %w", path, err)
	}

	logger.Debug().Str("path", path).Int("rules", len(cfg.Rules)).Msg("configuration loaded")

	return cfg, nil
}

// parseAny tries YAML and then HCL
func parseAny(ctx context.Context, data []byte) (*Config, error) {
	cfg, yamlErr := (&YAMLParser{}).Parse(ctx, data)
	if yamlErr == nil {
		return cfg, nil
	}

	cfg, hclErr := (&HCLParser{}).Parse(ctx, data)
	if hclErr == nil {
		return cfg, nil
	}

	return nil, errors.Errorf("not YAML (%s) or HCL (%s)", yamlErr.Error(), hclErr.Error())
}

// 🔍 Discover returns the first of DefaultFilenames present in dir,
// or an empty string when there is none
func Discover(dir string) (string, error) {
	for _, name := range DefaultFilenames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", errors.Errorf("checking %s: %w", path, err)
		}
	}
	return "", nil
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if len(cfg.Rules) == 0 {
		return errors.Errorf("%w: at least one rule is required", ErrInvalidConfig)
	}
	if cfg.Concurrency < 0 {
		return errors.Errorf("%w: concurrency must not be negative, got %d", ErrInvalidConfig, cfg.Concurrency)
	}
	for _, name := range cfg.ExcludeDirs {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return errors.Errorf("%w: exclude_dirs entry %q must be a directory name", ErrInvalidConfig, name)
		}
	}
	for _, g := range cfg.Include {
		if !doublestar.ValidatePattern(g) {
			return errors.Errorf("%w: invalid include glob %q", ErrInvalidConfig, g)
		}
	}
	for _, g := range cfg.Exclude {
		if !doublestar.ValidatePattern(g) {
			return errors.Errorf("%w: invalid exclude glob %q", ErrInvalidConfig, g)
		}
	}

	if _, err := cfg.RuleSet(); err != nil {
		return err
	}

	if cfg.BackupDir != "" {
		cfg.BackupDir = filepath.Clean(cfg.BackupDir)
	}

	return nil
}

// 🏭 RuleSet compiles the configured rules
func (cfg *Config) RuleSet() (*text.RuleSet, error) {
	rs, err := text.NewRuleSet(cfg.Rules...)
	if err != nil {
		return nil, errors.Errorf("compiling rules: %w", err)
	}
	return rs, nil
}

// 🚶 WalkOptions returns the traversal options described by the config.
// The config file itself is never yielded so a run cannot rewrite its own rules.
func (cfg *Config) WalkOptions() walk.Options {
	opts := walk.Options{
		ExcludeDirs: cfg.ExcludeDirs,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
	}
	if loc := cfg.Location(); loc != "" {
		if abs, err := filepath.Abs(loc); err == nil {
			opts.SkipPaths = []string{abs}
		}
	}
	return opts
}

// Location returns the file the config was loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// ➕ AddReplacements appends literal OLD=NEW rules after the configured ones
func (cfg *Config) AddReplacements(pairs ...string) error {
	for _, pair := range pairs {
		rule, err := ParseReplacement(pair)
		if err != nil {
			return err
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return nil
}

// ParseReplacement turns OLD=NEW into a literal rule. Only the first '=' splits.
func ParseReplacement(pair string) (text.Rule, error) {
	old, replacement, ok := strings.Cut(pair, "=")
	if !ok || old == "" {
		return text.Rule{}, errors.Errorf("%w: replacement %q must have the form OLD=NEW", ErrInvalidConfig, pair)
	}
	return text.Rule{
		Pattern:            old,
		Replacement:        replacement,
		Literal:            true,
		LiteralReplacement: true,
	}, nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	src := cfg.location
	if src == "" {
		src = "flags"
	}
	return fmt.Sprintf("%d rules from %s", len(cfg.Rules), src)
}
