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

// Package callgraph implements the frontend of the call graph construction.
// -cgout Given a path for a .dot file, writes the context-sensitive call graph in that file.
// -edges Prints the context-insensitive call edges on standard output.
package callgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/awslabs/ar-pta/analysis/pta"
	"github.com/awslabs/ar-pta/analysis/rendering"
	"github.com/awslabs/ar-pta/cmd/arkpta/tools"
	"github.com/awslabs/ar-pta/internal/formatutil"
	"golang.org/x/exp/slices"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"
)

const usage = `Build the call graph of a program with a context-sensitive pointer analysis.
Usage:
  arkpta callgraph [options] program.yaml
Examples:
Write the call graph computed with 1-object-sensitivity
  % arkpta callgraph -policy object -k 1 -cgout cg.dot program.yaml
Write the reports listed in the config
  % arkpta callgraph -config config.yaml program.yaml
`

// Flags represents the parsed callgraph sub-command flags.
type Flags struct {
	tools.CommonFlags
	cgOut string
	edges bool
}

// NewFlags returns the parsed callgraph sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("callgraph")
	cgOut := flags.FlagSet.String("cgout", "", "output file for call graph (no output if not specified)")
	edges := flags.FlagSet.Bool("edges", false, "print the call edges between functions")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, cgOut: *cgOut, edges: *edges}, nil
}

// Run runs the call graph construction with flags.
func Run(flags Flags) error {
	ctx, cancel := tools.SignalContext()
	defer cancel()
	return run(ctx, os.Stdout, osfs.New(""), flags)
}

func run(ctx context.Context, w io.Writer, fs billy.Filesystem, flags Flags) error {
	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading sources")+"\n")
	state, err := tools.LoadAnalyzerState(flags.CommonFlags)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, formatutil.Faint("Computing call graph")+"\n")
	runErr := state.RunPointerAnalysis(ctx)
	res := state.Result
	if res == nil {
		return fmt.Errorf("pointer analysis failed: %w", runErr)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, formatutil.Yellow("Partial result: %v")+"\n", runErr)
	}
	fmt.Fprintf(os.Stderr, formatutil.Faint(fmt.Sprintf("Computed in %.3f s", res.Stats.Duration.Seconds()))+"\n")

	if flags.cgOut != "" {
		filename, err := filepath.Abs(flags.cgOut)
		if err != nil {
			return err
		}
		if err := rendering.GraphvizToFile(fs, res, filename); err != nil {
			return fmt.Errorf("could not write call graph: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Call graph written in %s\n", formatutil.Cyan(flags.cgOut))
	}
	if state.Config.ReportsAnything() {
		if dir, err := filepath.Abs(state.Config.ReportsDir); err == nil {
			state.Config.ReportsDir = dir
		}
		written, err := rendering.WriteReports(fs, state.Config, res)
		if err != nil {
			return fmt.Errorf("could not write reports: %v", err)
		}
		for _, f := range written {
			fmt.Fprintf(os.Stderr, "Report written in %s\n", formatutil.Cyan(f))
		}
	}

	fmt.Fprint(w, Summary(res))
	if flags.edges {
		var lines []string
		for caller, callees := range res.CallGraph.FuncEdges() {
			for callee := range callees {
				lines = append(lines, res.Funcs.Name(caller)+" -> "+res.Funcs.Name(callee))
			}
		}
		slices.Sort(lines)
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// Summary returns the counters of the result as a two-column table
func Summary(res *pta.Result) string {
	s := res.Stats
	row := func(name string, v int) []string { return []string{name, strconv.Itoa(v)} }
	return formatutil.Table([][]string{
		row("functions", s.Functions),
		row("reached functions", s.ReachedFunctions),
		row("contexts", s.Contexts),
		row("nodes", s.Nodes),
		row("edges", s.Edges),
		row("static edges", s.StaticEdges),
		row("dynamic edges", s.DynamicEdges),
		row("tokens", s.Tokens),
		row("work items", s.Iterations),
		row("diagnostics", s.Diagnostics),
	})
}
