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

// Package tools contains utility types and functions for the arkpta tool frontends.
package tools

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/awslabs/ar-pta/analysis/pta"
)

// UnparsedCommonFlags represents an unparsed CLI sub-command flags.
type UnparsedCommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath *string
	Verbose    *bool
	Policy     *string
	Depth      *int
	Timestamps *bool
}

// NewUnparsedCommonFlags returns an unparsed flag set with a given name.
// This is useful for creating sub-commands that have the flags -config, -verbose, -policy and -k but need other
// flags in addition.
func NewUnparsedCommonFlags(name string) UnparsedCommonFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := cmd.String("config", "", "config file path for analysis")
	verbose := cmd.Bool("verbose", false, "verbose printing on standard error")
	policy := cmd.String("policy", "", "context policy overriding the config: callsite, object or insensitive")
	depth := cmd.Int("k", -1, "context depth overriding the config")
	timestamps := cmd.Bool("timestamps", false, "prefix log entries with their time")
	return UnparsedCommonFlags{
		FlagSet:    cmd,
		ConfigPath: configPath,
		Verbose:    verbose,
		Policy:     policy,
		Depth:      depth,
		Timestamps: timestamps,
	}
}

// Parse parses args and returns the common flags
func (u UnparsedCommonFlags) Parse(args []string) (CommonFlags, error) {
	if err := u.FlagSet.Parse(args); err != nil {
		return CommonFlags{}, fmt.Errorf("failed to parse command %s with args %v: %v", u.FlagSet.Name(), args, err)
	}
	return CommonFlags{
		FlagSet:    u.FlagSet,
		ConfigPath: *u.ConfigPath,
		Verbose:    *u.Verbose,
		Policy:     *u.Policy,
		Depth:      *u.Depth,
		Timestamps: *u.Timestamps,
	}, nil
}

// CommonFlags represents a parsed CLI sub-command flags.
// E.g., for the command `arkpta callgraph ...`, "callgraph" is the sub-command.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
	Policy     string
	Depth      int
	Timestamps bool
}

// NewCommonFlags returns a parsed flag set with a given name.
// Returns an error if args are invalid.
// Prints cmdUsage along with flag docs as the --help message.
func NewCommonFlags(name string, args []string, cmdUsage string) (CommonFlags, error) {
	flags := NewUnparsedCommonFlags(name)
	SetUsage(flags.FlagSet, cmdUsage)
	return flags.Parse(args)
}

// SetUsage sets cmd's usage (for --help flag) to output the string cmdUsage
// followed by each flag's documentation.
func SetUsage(cmd *flag.FlagSet, cmdUsage string) {
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
}

// LoadConfig loads the config file from configPath. The default config is returned when configPath is empty.
// The command line overrides are applied and the result is validated.
func LoadConfig(flags CommonFlags) (*config.Config, error) {
	cfg := config.NewDefault()
	if flags.ConfigPath != "" {
		config.SetGlobalConfig(flags.ConfigPath)
		c, err := config.LoadGlobal()
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %v", flags.ConfigPath, err)
		}
		cfg = c
	}
	if flags.Verbose && !cfg.Verbose() {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if flags.Policy != "" {
		cfg.Pointer.ContextPolicy = flags.Policy
	}
	if flags.Depth >= 0 {
		cfg.Pointer.ContextDepth = flags.Depth
		if cfg.Pointer.HeapContextDepth > flags.Depth {
			cfg.Pointer.HeapContextDepth = flags.Depth
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %v", err)
	}
	return cfg, nil
}

// LoadAnalyzerState loads the configuration and the single program file named in the flags' positional arguments
func LoadAnalyzerState(flags CommonFlags) (*pta.AnalyzerState, error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, err
	}
	args := flags.FlagSet.Args()
	if len(args) != 1 {
		return nil, fmt.Errorf("could not load program: expected one program file, got %d arguments", len(args))
	}
	program, err := ir.LoadProgramFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("could not load program: %v", err)
	}
	logger := config.NewLogGroup(cfg)
	if flags.Timestamps {
		logger.SetTimestamps(true)
	}
	return pta.NewAnalyzerState(program, logger, cfg)
}

// SignalContext returns a context that is cancelled on the first interrupt. The analyses stop at their next
// cancellation check and keep their partial result.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
