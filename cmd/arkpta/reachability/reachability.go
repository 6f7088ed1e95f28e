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

package reachability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/pta"
	"github.com/awslabs/ar-pta/analysis/reachability"
	"github.com/awslabs/ar-pta/cmd/arkpta/tools"
	"github.com/awslabs/ar-pta/internal/formatutil"
	"github.com/awslabs/ar-pta/internal/funcutil"
	"github.com/awslabs/ar-pta/internal/graphutil"
)

// Flags represents the parsed flags for the reachability sub-command.
type Flags struct {
	tools.CommonFlags
	outputJSON bool
	cycles     bool
	from       string
	to         string
}

// NewFlags creates parsed reachability sub-command flags for args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("reachability")
	outputJSON := flags.FlagSet.Bool("json", false, "output results as JSON")
	cycles := flags.FlagSet.Bool("cycles", false, "print the elementary cycles of the call graph")
	from := flags.FlagSet.String("from", "", "print a chain of calls starting at this function (requires -to)")
	to := flags.FlagSet.String("to", "", "print a chain of calls ending at this function (requires -from)")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	if (*from == "") != (*to == "") {
		return Flags{}, fmt.Errorf("-from and -to must be used together")
	}
	return Flags{CommonFlags: common, outputJSON: *outputJSON, cycles: *cycles, from: *from, to: *to}, nil
}

const usage = `Find all the reachable functions in your program.

Usage:
  arkpta reachability [options] program.yaml

Use the -help flag to display the options.

Examples:
% arkpta reachability program.yaml
% arkpta reachability -cycles program.yaml
% arkpta reachability -from main -to A.m program.yaml
`

// Run runs the reachability analysis with flags.
func Run(flags Flags) error {
	ctx, cancel := tools.SignalContext()
	defer cancel()
	return run(ctx, os.Stdout, flags)
}

func run(ctx context.Context, w io.Writer, flags Flags) error {
	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading sources")+"\n")
	state, err := tools.LoadAnalyzerState(flags.CommonFlags)
	if err != nil {
		return fmt.Errorf("failed to initialize analyzer state: %w", err)
	}
	fmt.Fprintf(os.Stderr, formatutil.Faint("Analyzing")+"\n")
	if err := state.RunPointerAnalysis(ctx); state.Result == nil {
		return fmt.Errorf("pointer analysis failed: %w", err)
	}
	res := state.Result

	if flags.from != "" {
		return printPath(w, res, flags.from, flags.to)
	}
	if flags.cycles {
		for _, line := range Cycles(res) {
			fmt.Fprintln(w, line)
		}
		recursive := reachability.RecursiveFunctions(res.CallGraph, res.Funcs)
		fmt.Fprintf(os.Stderr, "%s recursive functions\n", formatutil.Bold(len(recursive)))
		return nil
	}
	return reachability.ReachableFunctionsAnalysis(w, res.CallGraph, res.Funcs, flags.outputJSON)
}

// Cycles returns the elementary cycles among the reachable functions, as chains of function names
func Cycles(res *pta.Result) []string {
	var reached []int64
	for _, f := range res.CallGraph.ReachedFuncs() {
		reached = append(reached, int64(f))
	}
	g := graphutil.Subgraph(graphutil.NewFuncGraph(res.CallGraph, res.Funcs), reached)
	var lines []string
	for _, cycle := range graphutil.FindAllElementaryCycles(g) {
		names := funcutil.Map(cycle, func(id int64) string { return res.Funcs.Name(callgraph.FuncID(id)) })
		lines = append(lines, strings.Join(names, " -> "))
	}
	return lines
}

func printPath(w io.Writer, res *pta.Result, from string, to string) error {
	fromID, ok := res.Funcs.Lookup(from)
	if !ok {
		return fmt.Errorf("no function named %s", from)
	}
	toID, ok := res.Funcs.Lookup(to)
	if !ok {
		return fmt.Errorf("no function named %s", to)
	}
	path := reachability.Path(res.CallGraph, res.Funcs, fromID, toID)
	if path == nil {
		fmt.Fprintf(w, "%s does not reach %s\n", from, to)
		return nil
	}
	fmt.Fprintln(w, strings.Join(path, " -> "))
	return nil
}
