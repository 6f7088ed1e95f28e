// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the options of a pointer analysis run. To add elements to a config file, add fields to this
// struct. If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	// Pointer holds the options of the points-to analysis and call graph construction
	Pointer PointerOptions `yaml:"pointer"`

	// EntryPoints lists the names of the functions the analysis starts from. When empty, the entry points declared
	// by the program are used.
	EntryPoints []string `yaml:"entrypoints"`

	sourceFile string
}

// Options are the general options of the tool
type Options struct {
	// ReportsDir is the directory where all the reports will be stored. If the yaml config file this config struct has
	// been loaded does not specify a ReportsDir but sets any Report* option to true, then ReportsDir will be created
	// in the folder of the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportCallgraph specifies whether the call graph is written in Graphviz format in the reports directory
	ReportCallgraph bool `yaml:"report-callgraph"`

	// ReportPointsTo specifies whether the non-empty points-to sets are dumped in the reports directory
	ReportPointsTo bool `yaml:"report-pointsto"`

	// ReportDiagnostics specifies whether the unanalyzable constructs met by the analysis are reported
	ReportDiagnostics bool `yaml:"report-diagnostics"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`
}

// PointerOptions controls the precision and the budget of the points-to analysis
type PointerOptions struct {
	// ContextPolicy is one of "callsite", "object" or "insensitive"
	ContextPolicy string `yaml:"context-policy"`

	// ContextDepth is the k of the k-limited policies. 0 means context-insensitive.
	ContextDepth int `yaml:"context-depth"`

	// HeapContextDepth is the length of the context attached to allocation tokens. It must not exceed ContextDepth.
	HeapContextDepth int `yaml:"heap-context-depth"`

	// SingletonStatics analyses static factory functions once, under the empty context
	SingletonStatics bool `yaml:"singleton-statics"`

	// MaxIterations bounds the number of work items processed. If MaxIterations <= 0, it is ignored.
	MaxIterations int `yaml:"max-iterations"`

	// CancelCheckInterval is the number of work items processed between two checks of the cancellation signal
	CancelCheckInterval int `yaml:"cancel-check-interval"`

	// Workers is the number of independent seed groups solved concurrently
	Workers int `yaml:"workers"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:  "",
		EntryPoints: nil,
		Options: Options{
			ReportsDir:        "",
			ReportCallgraph:   false,
			ReportPointsTo:    false,
			ReportDiagnostics: false,
			LogLevel:          int(InfoLevel),
		},
		Pointer: PointerOptions{
			ContextPolicy:       PolicyCallSite,
			ContextDepth:        DefaultContextDepth,
			HeapContextDepth:    DefaultHeapContextDepth,
			SingletonStatics:    true,
			MaxIterations:       0,
			CancelCheckInterval: DefaultCancelCheckInterval,
			Workers:             1,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := LoadFromBytes(filename, b)
	if err != nil {
		return nil, err
	}
	if cfg.ReportCallgraph || cfg.ReportPointsTo || cfg.ReportDiagnostics {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFromBytes parses the configuration in b. The name is only used to resolve relative paths and in error
// messages. The reports directory is not created.
func LoadFromBytes(name string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", name, err)
	}
	cfg.sourceFile = name

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.Pointer.ContextPolicy == "" {
		cfg.Pointer.ContextPolicy = PolicyCallSite
	}
	if cfg.Pointer.CancelCheckInterval <= 0 {
		cfg.Pointer.CancelCheckInterval = DefaultCancelCheckInterval
	}
	if cfg.Pointer.Workers == 0 {
		cfg.Pointer.Workers = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", name, err)
	}
	return cfg, nil
}

// Validate checks that the options have values the analysis can run with
func (c Config) Validate() error {
	p := c.Pointer
	if !slices.Contains([]string{PolicyCallSite, PolicyObject, PolicyInsensitive}, p.ContextPolicy) {
		return fmt.Errorf("context-policy %q is not one of %s, %s, %s",
			p.ContextPolicy, PolicyCallSite, PolicyObject, PolicyInsensitive)
	}
	if p.ContextDepth < 0 || p.ContextDepth > MaxContextDepth {
		return fmt.Errorf("context-depth %d is not between 0 and %d", p.ContextDepth, MaxContextDepth)
	}
	if p.HeapContextDepth < 0 {
		return fmt.Errorf("heap-context-depth %d is negative", p.HeapContextDepth)
	}
	if p.HeapContextDepth > p.ContextDepth {
		return fmt.Errorf("heap-context-depth %d exceeds context-depth %d", p.HeapContextDepth, p.ContextDepth)
	}
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	if c.LogLevel < int(ErrLevel) || c.LogLevel > int(TraceLevel) {
		return fmt.Errorf("log-level %d is not between %d and %d", c.LogLevel, ErrLevel, TraceLevel)
	}
	return nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ReportsAnything returns true when some report file is requested
func (c Config) ReportsAnything() bool {
	return c.ReportCallgraph || c.ReportPointsTo || c.ReportDiagnostics
}
